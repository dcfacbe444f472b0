package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"finora/internal/aggregate"
	"finora/internal/app"
	"finora/internal/ledger"
	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const maxImportSize = 5 << 20

var exportHeader = []string{"Date", "Kind", "Category", "Amount", "Notes"}

type ImportExportHandler struct {
	App *app.App
	Log *applog.Logger
}

func NewImportExportHandler(a *app.App, logger *applog.Logger) *ImportExportHandler {
	return &ImportExportHandler{App: a, Log: logger}
}

// ExportCSV downloads the caller's entries as CSV.
func (h *ImportExportHandler) ExportCSV(c *gin.Context) {
	entries, err := h.App.Entries(c.Request.Context(), middleware.CurrentSession(c), app.EntryFilter{})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"finora_entries_%s.csv\"",
		time.Now().Format("20060102")))

	// BOM so spreadsheet apps detect UTF-8
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write(exportHeader)
	for _, e := range entries {
		r := toEntryResp(e)
		_ = writer.Write([]string{r.Date, string(r.Kind), r.Category, r.Amount, r.Notes})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Log.Failure(c.Request.Context(), "write csv export", err)
	}
}

// ExportXLSX downloads the caller's entries plus a category sheet.
func (h *ImportExportHandler) ExportXLSX(c *gin.Context) {
	s := middleware.CurrentSession(c)
	entries, err := h.App.Entries(c.Request.Context(), s, app.EntryFilter{})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Entries"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		respondError(c, h.Log, fmt.Errorf("rename sheet: %w", err))
		return
	}
	for i, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
	}
	for idx, e := range entries {
		row := idx + 2
		r := toEntryResp(e)
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Date)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), string(r.Kind))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.Category)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), e.Amount.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.Notes)
	}
	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 10)
	_ = f.SetColWidth(sheet, "C", "C", 18)
	_ = f.SetColWidth(sheet, "D", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 40)

	const catSheet = "Categories"
	if _, err := f.NewSheet(catSheet); err != nil {
		respondError(c, h.Log, fmt.Errorf("new sheet: %w", err))
		return
	}
	_ = f.SetCellValue(catSheet, "A1", "Category")
	_ = f.SetCellValue(catSheet, "B1", "Expense")
	for idx, ca := range aggregate.SortedCategories(aggregate.ByCategory(slices.Values(entries))) {
		_ = f.SetCellValue(catSheet, fmt.Sprintf("A%d", idx+2), ca.Category)
		_ = f.SetCellValue(catSheet, fmt.Sprintf("B%d", idx+2), ca.Amount.InexactFloat64())
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"finora_entries_%s.xlsx\"",
		time.Now().Format("20060102")))
	if err := f.Write(c.Writer); err != nil {
		h.Log.Failure(c.Request.Context(), "write xlsx export", err)
	}
}

// Import merges an uploaded CSV or XLSX file (form field "file") into the
// caller's ledger. Older column layouts are accepted; rows already present
// are skipped.
func (h *ImportExportHandler) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if fh.Size > maxImportSize {
		util.Error(c, http.StatusRequestEntityTooLarge, util.CodeInvalidParam, "file too large")
		return
	}
	src, err := fh.Open()
	if err != nil {
		respondError(c, h.Log, fmt.Errorf("open upload: %w", err))
		return
	}
	defer src.Close()

	var table io.Reader = src
	if strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		table, err = xlsxToCSV(src)
		if err != nil {
			badRequest(c, "unreadable xlsx file")
			return
		}
	}

	s := middleware.CurrentSession(c)
	parsed, err := ledger.DecodeCSV(c.Request.Context(), table, s.Username, h.Log)
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	res, err := h.App.Import(c.Request.Context(), s, parsed.Entries, nil)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{
		"imported": res.Entries,
		"skipped":  parsed.Skipped,
		"read":     len(parsed.Entries),
	})
}

// xlsxToCSV flattens the first sheet so it can go through the CSV decoder.
func xlsxToCSV(r io.Reader) (io.Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return &buf, nil
}
