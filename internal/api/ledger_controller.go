package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jask/jangbu/internal/ingest"
	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/logger"
	"github.com/jask/jangbu/internal/query"
	"github.com/jask/jangbu/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type LedgerController struct {
	svc Services
}

// Ingest appends an uploaded workbook sent as multipart field "file".
func (lc *LedgerController) Ingest(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	res, err := lc.svc.Ingest.Import(c.Request.Context(), fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"batch_id":        res.BatchID,
		"rows":            res.Rows,
		"fingerprint":     res.Fingerprint,
		"previously_seen": res.PreviouslySeen,
	})
}

// Batches lists recent ingest runs.
func (lc *LedgerController) Batches(c *gin.Context) {
	list, err := lc.svc.Ingest.History(c.Request.Context(), getLimitWithDefault(c, 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": list})
}

// Search runs a filter. With ?limit= the result is paged.
func (lc *LedgerController) Search(c *gin.Context) {
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var (
		res service.SearchResult
		err error
	)
	if limit := getLimitWithDefault(c, 0); limit > 0 {
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		res, err = lc.svc.Search.Page(ctx, f, limit, offset)
	} else {
		res, err = lc.svc.Search.Search(ctx, f)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	labels := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		labels[i] = ledger.Label(col)
	}
	c.JSON(http.StatusOK, gin.H{
		"columns": res.Columns,
		"labels":  labels,
		"records": res.Records,
		"totals":  res.Totals,
	})
}

// Export returns the search result as a workbook.
func (lc *LedgerController) Export(c *gin.Context) {
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	res, err := lc.svc.Search.Search(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := ingest.WriteXLSX(c.Writer, res.Result, &res.Totals); err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("export failed")
	}
}

// Facets returns cascading values. ?column= limits the answer to one column.
func (lc *LedgerController) Facets(c *gin.Context) {
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if col := c.Query("column"); col != "" {
		vals, err := lc.svc.Search.Facet(ctx, col, f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"column": col, "values": vals})
		return
	}
	all, err := lc.svc.Search.Facets(ctx, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facets": all})
}

// Duplicates lists duplicate records; ?grouped=true nests them by key.
func (lc *LedgerController) Duplicates(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("grouped") == "true" {
		groups, err := lc.svc.Reconciler.Groups(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"groups": groups})
		return
	}
	recs, err := lc.svc.Reconciler.Duplicates(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

// UpdateRecord applies a column (or label) to value map to one record.
func (lc *LedgerController) UpdateRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := lc.svc.Maintenance.UpdateRecord(c.Request.Context(), id, changes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "changed": changed})
}

// DeleteRecord removes one record. A missing id still answers 200.
func (lc *LedgerController) DeleteRecord(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	removed, err := lc.svc.Maintenance.DeleteRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "removed": removed})
}

// DeleteAll wipes the ledger. It requires ?confirm=true.
func (lc *LedgerController) DeleteAll(c *gin.Context) {
	removed, err := lc.svc.Maintenance.Reset(c.Request.Context(), c.Query("confirm") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func bindFilter(c *gin.Context) (query.Filter, bool) {
	var f query.Filter
	if c.Request.ContentLength == 0 {
		return f, true
	}
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return f, false
	}
	return f, true
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return 0, false
	}
	return id, true
}

func getLimitWithDefault(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownColumn),
		errors.Is(err, query.ErrInvalidDate),
		errors.Is(err, query.ErrRawPredicate),
		errors.Is(err, query.ErrClause),
		errors.Is(err, service.ErrInvalidValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, query.ErrQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "hint": "check your predicate syntax"})
	case errors.Is(err, ingest.ErrLayout), errors.Is(err, ingest.ErrFormat):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotConfirmed):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": err.Error(), "hint": "repeat with confirm=true"})
	default:
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
