package invoicing

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"fm_servicios_backend/internal/adapters/storage"
	"fm_servicios_backend/internal/pdf"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/logger"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	invoiceFolder = "facturas"
	contentType   = "application/pdf"
	qrSize        = 256
)

// Renderer turns invoice data into PDF bytes.
type Renderer func(pdf.InvoiceData) ([]byte, error)

// Company identifies the issuer printed on invoices.
type Company struct {
	Name  string
	RUT   string
	Email string
	// PortalURL, when set, is encoded as a QR code linking to the quote.
	PortalURL string
}

// Issued is the outcome of issuing an invoice. PDF is empty when rendering
// failed; Document is nil when filing failed.
type Issued struct {
	Document *Document
	PDF      []byte
	FileName string
	Total    decimal.Decimal
}

// Service issues invoices for paid quotes.
type Service struct {
	repo       Repository
	store      storage.StorageService
	bucket     string
	local      *storage.LocalStore
	render     Renderer
	company    Company
	fixedPrice decimal.Decimal
	now        func() time.Time
	log        *logger.Logger
}

// NewService builds the invoicing service. store may be nil, in which case
// invoices are only written to the local directory.
func NewService(repo Repository, store storage.StorageService, bucket string, local *storage.LocalStore, company Company, fixedPrice int64, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		store:      store,
		bucket:     bucket,
		local:      local,
		render:     pdf.RenderInvoice,
		company:    company,
		fixedPrice: decimal.NewFromInt(fixedPrice),
		now:        time.Now,
		log:        log,
	}
}

// SetRenderer replaces the PDF renderer.
func (s *Service) SetRenderer(r Renderer) {
	s.render = r
}

// Breakdown returns the invoice breakdown of a quote without issuing it.
func (s *Service) Breakdown(ctx context.Context, quoteID int64) (Breakdown, error) {
	src, err := s.repo.LoadSource(ctx, quoteID)
	if err != nil {
		return Breakdown{}, err
	}
	return Aggregate(src.QuoteSnapshot, s.fixedPrice), nil
}

// Issue renders the invoice of a quote and files it. Rendering and storage
// failures are logged and degrade the result instead of failing it, so a
// paid quote always gets its receipt.
func (s *Service) Issue(ctx context.Context, quoteID int64) (Issued, error) {
	src, err := s.repo.LoadSource(ctx, quoteID)
	if err != nil {
		return Issued{}, err
	}
	b := Aggregate(src.QuoteSnapshot, s.fixedPrice)
	fileName := fmt.Sprintf("factura_cotizacion_%d.pdf", src.ID)
	issued := Issued{FileName: fileName, Total: b.Gross}

	started := time.Now()
	doc, err := s.render(s.invoiceData(src, b))
	s.log.ExternalCall("pdf", "render_invoice", started, err)
	if err != nil || len(doc) == 0 {
		return issued, nil
	}
	issued.PDF = doc

	filed, err := s.file(ctx, src, doc)
	if err != nil {
		s.log.Error("invoice filing failed", "quoteId", src.ID, "error", err)
		return issued, nil
	}
	issued.Document = &filed
	s.log.Info("invoice issued", "quoteId", src.ID, "documentId", filed.ID, "total", b.Gross.String())
	return issued, nil
}

func (s *Service) file(ctx context.Context, src Source, doc []byte) (Document, error) {
	reference := src.AuthCode
	if reference == "" {
		reference = src.GatewayStatus
	}
	if reference == "" {
		reference = "-"
	}

	record := Document{
		Title:      fmt.Sprintf("Factura Cotizacion #%d", src.ID),
		Category:   CategoryInvoice,
		QuoteID:    src.ID,
		CustomerID: src.CustomerID,
		Tags:       []string{"factura"},
		Description: fmt.Sprintf("Factura generada automaticamente el %s (pago: %s).",
			s.now().In(clock.Location).Format("02/01/2006 15:04"), reference),
	}

	baseName := fmt.Sprintf("factura_%d.pdf", src.ID)
	stored := false
	if s.store != nil {
		started := time.Now()
		key, err := s.store.UploadFile(ctx, s.bucket, invoiceFolder, baseName, contentType, bytes.NewReader(doc), int64(len(doc)))
		s.log.ExternalCall("storage", "upload_invoice", started, err)
		if err == nil {
			record.StoragePath = key
			record.StorageBucket = s.bucket
			if link, err := s.store.GenerateDownloadURL(ctx, s.bucket, key); err == nil {
				record.StorageURL = link.URL
			}
			stored = true
		}
	}
	// The local copy is kept alongside object storage when a directory is
	// configured, and is the only copy when the upload failed.
	switch {
	case s.local != nil:
		path, err := s.local.Save(ctx, invoiceFolder, baseName, doc)
		if err != nil {
			if !stored {
				return Document{}, err
			}
			s.log.Warn("local invoice copy failed", "quoteId", src.ID, "error", err)
		}
		record.LocalPath = path
	case !stored:
		return Document{}, fmt.Errorf("no storage available for invoice %d", src.ID)
	}

	return s.repo.UpsertDocument(ctx, record)
}

func (s *Service) invoiceData(src Source, b Breakdown) pdf.InvoiceData {
	data := pdf.InvoiceData{
		Number:        src.ID,
		IssuedAt:      s.now().In(clock.Location),
		CompanyName:   s.company.Name,
		CompanyRUT:    s.company.RUT,
		CompanyEmail:  s.company.Email,
		CustomerName:  src.CustomerName,
		CustomerEmail: src.CustomerEmail,
		Region:        src.Region,
		Comuna:        src.Comuna,
		Address:       src.Place,
		ServiceLabel:  src.Description(),
		Labor:         toPDFLines(b.Labor),
		Materials:     toPDFLines(b.Materials),
		Net:           b.Net,
		Tax:           b.Tax,
		Total:         b.Gross,
	}
	if s.company.PortalURL != "" {
		link := fmt.Sprintf("%s/cotizaciones/%d", s.company.PortalURL, src.ID)
		if png, err := qrcode.Encode(link, qrcode.Medium, qrSize); err == nil {
			data.QRCode = png
		}
	}
	return data
}

func toPDFLines(lines []Line) []pdf.InvoiceLine {
	out := make([]pdf.InvoiceLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, pdf.InvoiceLine{
			Code:        l.Code,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total(),
		})
	}
	return out
}
