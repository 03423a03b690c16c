package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/alkis"
	"github.com/nordwind/parkoffice/internal/application/service"
	"github.com/nordwind/parkoffice/internal/domain/entity"
	"github.com/nordwind/parkoffice/internal/shapefile"
)

const tenantKey = "tenant_id"

// Handlers contains all HTTP request handlers
type Handlers struct {
	corrections   service.CorrectionService
	history       service.HistoryService
	export        service.ExportService
	parser        *shapefile.Parser
	maxUploadSize int64
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	corrections service.CorrectionService,
	history service.HistoryService,
	export service.ExportService,
	parser *shapefile.Parser,
	maxUploadSize int64,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		corrections:   corrections,
		history:       history,
		export:        export,
		parser:        parser,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Position is set on line-level validation errors (1-based)
	Position int `json:"position,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func parseTenantHeader(c *gin.Context) (int64, error) {
	raw := c.GetHeader("X-Tenant-ID")
	if raw == "" {
		return 0, fmt.Errorf("missing tenant header")
	}
	tenantID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tenantID <= 0 {
		return 0, fmt.Errorf("invalid tenant header %q", raw)
	}
	return tenantID, nil
}

func (h *Handlers) tenantID(c *gin.Context) int64 {
	return c.GetInt64(tenantKey)
}

func (h *Handlers) invoiceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "Ungültige Rechnungs-ID",
		})
		return 0, false
	}
	return id, true
}

// respondError maps domain error kinds to HTTP status codes. Unknown errors
// never leak internals to the client.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var status int
	switch entity.KindOf(err) {
	case entity.ErrKindNotFound:
		status = http.StatusNotFound
	case entity.ErrKindForbidden:
		status = http.StatusForbidden
	case entity.ErrKindInvalidState:
		status = http.StatusConflict
	case entity.ErrKindValidation:
		status = http.StatusUnprocessableEntity
	case entity.ErrKindDecode:
		status = http.StatusBadRequest
	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Interner Serverfehler",
		})
		return
	}

	resp := Response{Success: false, Error: err.Error()}
	var de *entity.DomainError
	if errors.As(err, &de) {
		resp.Position = de.Position
	}
	c.JSON(status, resp)
}

type partialCancellationRequest struct {
	Positions []service.CancelPosition `json:"positions" binding:"required"`
	Reason    string                   `json:"reason"`
	UserID    int64                    `json:"user_id"`
}

// CreatePartialCancellation handles POST /api/invoices/:id/partial-cancellation
func (h *Handlers) CreatePartialCancellation(c *gin.Context) {
	invoiceID, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req partialCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Ungültiger Anfragetext"})
		return
	}

	creditNote, err := h.corrections.CreatePartialCancellation(c.Request.Context(), service.PartialCancellationInput{
		InvoiceID: invoiceID,
		TenantID:  h.tenantID(c),
		Positions: req.Positions,
		Reason:    req.Reason,
		UserID:    req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: creditNote})
}

type correctionRequest struct {
	Positions []service.CorrectionPosition `json:"positions" binding:"required"`
	Reason    string                       `json:"reason"`
	UserID    int64                        `json:"user_id"`
}

// CreateCorrectionInvoice handles POST /api/invoices/:id/correction
func (h *Handlers) CreateCorrectionInvoice(c *gin.Context) {
	invoiceID, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Ungültiger Anfragetext"})
		return
	}

	result, err := h.corrections.CreateCorrectionInvoice(c.Request.Context(), service.CorrectionInput{
		InvoiceID: invoiceID,
		TenantID:  h.tenantID(c),
		Positions: req.Positions,
		Reason:    req.Reason,
		UserID:    req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: result})
}

type fullCancellationRequest struct {
	Reason string `json:"reason"`
	UserID int64  `json:"user_id"`
}

// CreateFullCancellation handles POST /api/invoices/:id/cancellation
func (h *Handlers) CreateFullCancellation(c *gin.Context) {
	invoiceID, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req fullCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Ungültiger Anfragetext"})
		return
	}

	creditNote, err := h.corrections.CreateFullCancellation(c.Request.Context(), service.FullCancellationInput{
		InvoiceID: invoiceID,
		TenantID:  h.tenantID(c),
		Reason:    req.Reason,
		UserID:    req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: creditNote})
}

// GetCorrectionHistory handles GET /api/invoices/:id/corrections
func (h *Handlers) GetCorrectionHistory(c *gin.Context) {
	invoiceID, ok := h.invoiceID(c)
	if !ok {
		return
	}

	history, err := h.history.GetCorrectionHistory(c.Request.Context(), h.tenantID(c), invoiceID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// DownloadCorrectionReport handles GET /api/invoices/:id/correction-report
func (h *Handlers) DownloadCorrectionReport(c *gin.Context) {
	invoiceID, ok := h.invoiceID(c)
	if !ok {
		return
	}

	report, err := h.export.GenerateCorrectionReport(c.Request.Context(), h.tenantID(c), invoiceID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	fileName := fmt.Sprintf("korrekturverlauf_%d.xlsx", invoiceID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report)
}

// shapefileResponse is the parse result plus proposed field mappings.
type shapefileResponse struct {
	Features     []*shapefile.ParsedFeature `json:"features"`
	Fields       []string                   `json:"fields"`
	CRS          string                     `json:"crs,omitempty"`
	Warnings     []string                   `json:"warnings,omitempty"`
	PlotMapping  alkis.FieldMapping         `json:"plot_mapping"`
	OwnerMapping alkis.FieldMapping         `json:"owner_mapping"`
	Plots        []*alkis.MappedPlotData    `json:"plots"`
	Owners       []*alkis.MappedOwnerData   `json:"owners"`
}

// ParseShapefile handles POST /api/shapefiles/parse. The upload is a zipped
// shapefile; the response carries the parsed features together with the
// auto-detected ALKIS field mappings and their projections, so the client
// can show a preview and let the user override mappings before import.
func (h *Handlers) ParseShapefile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "Keine Datei hochgeladen (Formularfeld \"file\" fehlt)",
		})
		return
	}
	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("Datei zu groß (maximal %d MB)", h.maxUploadSize/(1024*1024)),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.parser.Parse(data, fileHeader.Filename)
	if err != nil {
		h.respondError(c, err)
		return
	}

	plotMapping := alkis.AutoDetect(result.Fields, alkis.PlotFieldPatterns)
	ownerMapping := alkis.AutoDetect(result.Fields, alkis.OwnerFieldPatterns)

	resp := &shapefileResponse{
		Features:     result.Features,
		Fields:       result.Fields,
		CRS:          result.CRS,
		Warnings:     result.Warnings,
		PlotMapping:  plotMapping,
		OwnerMapping: ownerMapping,
	}
	for _, feature := range result.Features {
		resp.Plots = append(resp.Plots, alkis.ApplyPlotMapping(feature.Properties, plotMapping))
		resp.Owners = append(resp.Owners, alkis.ApplyOwnerMapping(feature.Properties, ownerMapping))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}
