package inventory

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	stockBucketName    = "stock"
	supplierBucketName = "proveedores"
	documentBucketName = "documentos"
)

// DB defines the interface for database operations. The stock and supplier
// collections are flat ordered record lists: readers get the full list,
// writers replace it wholesale.
type DB interface {
	// ListStock returns the full stock snapshot in id order
	ListStock() ([]Item, error)

	// ReplaceStock writes the whole stock snapshot back in one shot
	ReplaceStock(items []Item) error

	// ListSuppliers returns all suppliers in id order
	ListSuppliers() ([]Supplier, error)

	// ReplaceSuppliers writes the whole supplier list back in one shot
	ReplaceSuppliers(proveedores []Supplier) error

	// SaveDocument saves an uploaded-document metadata record
	SaveDocument(doc *Document) error

	// GetDocument retrieves a document record by id
	GetDocument(id string) (*Document, error)

	// ListDocuments returns all document records
	ListDocuments() ([]*Document, error)

	// DeleteDocument removes a document record
	DeleteDocument(id string) error

	// Close closes the database
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Item and supplier
// records are stored as JSON values keyed by big-endian id, so bucket
// iteration follows id order.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{stockBucketName, supplierBucketName, documentBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// itob encodes an id as a big-endian key so ids iterate in order
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// ListStock returns the full stock snapshot in id order
func (b *BoltDB) ListStock() ([]Item, error) {
	items := make([]Item, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stockBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling item: %w", err)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceStock writes the whole stock snapshot back in one transaction
func (b *BoltDB) ReplaceStock(items []Item) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(stockBucketName)); err != nil {
			return fmt.Errorf("clearing stock bucket: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(stockBucketName))
		if err != nil {
			return fmt.Errorf("recreating stock bucket: %w", err)
		}
		for i := range items {
			data, err := json.Marshal(&items[i])
			if err != nil {
				return fmt.Errorf("marshaling item: %w", err)
			}
			if err := bucket.Put(itob(items[i].ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSuppliers returns all suppliers in id order
func (b *BoltDB) ListSuppliers() ([]Supplier, error) {
	proveedores := make([]Supplier, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(supplierBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var p Supplier
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("unmarshaling supplier: %w", err)
			}
			proveedores = append(proveedores, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return proveedores, nil
}

// ReplaceSuppliers writes the whole supplier list back in one transaction
func (b *BoltDB) ReplaceSuppliers(proveedores []Supplier) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(supplierBucketName)); err != nil {
			return fmt.Errorf("clearing supplier bucket: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(supplierBucketName))
		if err != nil {
			return fmt.Errorf("recreating supplier bucket: %w", err)
		}
		for i := range proveedores {
			data, err := json.Marshal(&proveedores[i])
			if err != nil {
				return fmt.Errorf("marshaling supplier: %w", err)
			}
			if err := bucket.Put(itob(proveedores[i].ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveDocument saves a document metadata record
func (b *BoltDB) SaveDocument(doc *Document) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucketName))
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		return bucket.Put([]byte(doc.ID), data)
	})
}

// GetDocument retrieves a document record by id
func (b *BoltDB) GetDocument(id string) (*Document, error) {
	var doc *Document
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns all document records
func (b *BoltDB) ListDocuments() ([]*Document, error) {
	docs := make([]*Document, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling document: %w", err)
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocument removes a document record
func (b *BoltDB) DeleteDocument(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentBucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database
func (b *BoltDB) Close() error {
	return b.db.Close()
}
