package inventory

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		scanner     *mockScanner
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		db.proveedores = []Supplier{
			{ID: 3, Nombre: "Coca-Cola FEMSA", Impuesto: 21, Alias: []string{"coca", "femsa"}},
		}
		db.stock = []Item{
			{ID: 2, Nombre: "COCA COLA 1.5L", Stock: 24, StockMinimo: 10, PrecioBase: 1900, ProveedorID: 3},
			{ID: 4, Nombre: "PAN LACTAL 390G", Stock: 2, StockMinimo: 4, PrecioBase: 1800, ProveedorID: 3},
		}
		scanner = newMockScanner()
		service = NewService(db, scanner, newMockStorage())
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	getJSON := func(path string) (int, map[string]any) {
		resp, err := http.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var decoded map[string]any
		if json.Unmarshal(body, &decoded) != nil {
			decoded = nil
		}
		return resp.StatusCode, decoded
	}

	Describe("GET /health", func() {
		It("should report ok", func() {
			status, body := getJSON("/health")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("ok"))
		})
	})

	Describe("GET /api/stock", func() {
		It("should return the stock list with supplier details", func() {
			status, body := getJSON("/api/stock")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["success"]).To(BeTrue())

			stock := body["stock"].([]any)
			Expect(stock).To(HaveLen(2))
			first := stock[0].(map[string]any)
			Expect(first["nombre"]).To(Equal("COCA COLA 1.5L"))
			Expect(first["proveedor_nombre"]).To(Equal("Coca-Cola FEMSA"))
			Expect(first["precio_con_impuestos"]).To(Equal(2299.00))
		})
	})

	Describe("GET /api/stock/critico", func() {
		It("should return only items at or below their minimum", func() {
			status, body := getJSON("/api/stock/critico")
			Expect(status).To(Equal(http.StatusOK))

			stock := body["stock"].([]any)
			Expect(stock).To(HaveLen(1))
			Expect(stock[0].(map[string]any)["nombre"]).To(Equal("PAN LACTAL 390G"))
		})
	})

	Describe("PUT /api/stock", func() {
		It("should apply the confirmed items and report counters", func() {
			payload := `{"productos_actualizados":[{"producto_id":2,"cantidad":6,"accion":"entrada"}]}`
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/stock", strings.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["productos_actualizados"]).To(Equal(1.0))
			Expect(body["productos_nuevos"]).To(Equal(0.0))
			Expect(body["productos_con_error"]).To(Equal(0.0))
			Expect(db.stock[0].Stock).To(Equal(30))
		})

		It("should reject a malformed body without touching stock", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/stock", strings.NewReader("{not json"))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(db.replacedStock).To(BeEmpty())
		})

		It("should reject a body without productos_actualizados", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/stock", strings.NewReader("{}"))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(db.replacedStock).To(BeEmpty())

			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["success"]).To(BeFalse())
		})

		It("should accept an explicitly empty list", func() {
			payload := `{"productos_actualizados":[]}`
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/stock", strings.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["productos_actualizados"]).To(Equal(0.0))
		})
	})

	Describe("GET /api/proveedores", func() {
		It("should return the supplier list", func() {
			status, body := getJSON("/api/proveedores")
			Expect(status).To(Equal(http.StatusOK))

			proveedores := body["proveedores"].([]any)
			Expect(proveedores).To(HaveLen(1))
			Expect(proveedores[0].(map[string]any)["nombre"]).To(Equal("Coca-Cola FEMSA"))
		})
	})

	Describe("POST /api/facturas", func() {
		postFile := func(filename string, data []byte) *http.Response {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/facturas", &buf)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("should return the extraction with supplier and summary", func() {
			resp := postFile("factura.jpg", []byte("fake image"))
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["success"]).To(BeTrue())
			productos := body["productos"].([]any)
			Expect(productos).To(HaveLen(1))
			Expect(body["proveedor"].(map[string]any)["nombre"]).To(Equal("Coca-Cola FEMSA"))
			Expect(body["resumen"].(map[string]any)["total"]).To(Equal(605.00))
		})

		It("should reject a request without a file", func() {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/facturas", &buf)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/texto", func() {
		postText := func(payload string) *http.Response {
			resp, err := http.Post(ghttpServer.URL()+"/api/texto", "application/json", strings.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("should return the extraction", func() {
			resp := postText(`{"texto":"llegaron 5 cocas"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["success"]).To(BeTrue())
			Expect(body["texto_completo"]).To(Equal("llegaron 5 cocas"))
		})

		It("should reject empty text", func() {
			resp := postText(`{"texto":"   "}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["success"]).To(BeFalse())
		})

		It("should report extraction failures as bad gateway", func() {
			scanner.extractErr = errors.New("model unavailable")
			resp := postText(`{"texto":"llegaron 5 cocas"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("POST /api/audio", func() {
		postAudio := func(filename string) *http.Response {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("fake audio"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/audio", &buf)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("should return the extraction with the transcript", func() {
			resp := postAudio("nota.ogg")
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["texto_transcrito"]).To(Equal("llegaron cinco cocas"))
		})

		It("should reject non-audio uploads", func() {
			resp := postAudio("foto.jpg")
			resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject audio without speech", func() {
			scanner.transcript = "eh"
			resp := postAudio("nota.ogg")
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["success"]).To(BeFalse())
		})
	})

	Describe("documents", func() {
		BeforeEach(func() {
			db.documents["doc-1"] = &Document{ID: "doc-1", Tipo: "factura", Filename: "doc-1_factura.jpg"}
			service = NewService(db, scanner, newMockStorage())
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		It("should list the stored records", func() {
			status, body := getJSON("/api/documentos")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["documentos"].([]any)).To(HaveLen(1))
		})

		It("should 404 on a missing file", func() {
			status, _ := getJSON("/api/documentos/doc-1/file")
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("upload size limit", func() {
		buildUpload := func(size int) *http.Request {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", "factura.jpg")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(bytes.Repeat([]byte("x"), size))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest("POST", "/api/facturas", &buf)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			return req
		}

		It("should abort a body that exceeds the cap", func() {
			_, _, _, err := readUpload(httptest.NewRecorder(), buildUpload(2048), 512)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("demasiado grande"))
		})

		It("should accept a body under the cap", func() {
			filename, data, contentType, err := readUpload(httptest.NewRecorder(), buildUpload(64), 4096)
			Expect(err).NotTo(HaveOccurred())
			Expect(filename).To(Equal("factura.jpg"))
			Expect(data).To(HaveLen(64))
			Expect(contentType).To(Equal("image/jpeg"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secreto"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/stock")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/stock", nil)
			Expect(err).NotTo(HaveOccurred())
			creds := base64.StdEncoding.EncodeToString([]byte("admin:secreto"))
			req.Header.Set("Authorization", "Basic "+creds)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should leave the health check open", func() {
			resp, err := http.Get(ghttpServer.URL() + "/health")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
