package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmfieldworks/drillreports_backend/config"
	"github.com/mmfieldworks/drillreports_backend/exporter"
	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/mmfieldworks/drillreports_backend/syncengine"
	"github.com/mmfieldworks/drillreports_backend/utils"
)

// SaveReportHandler validates, derives totals and saves a record. A
// storage failure is surfaced to the operator, never swallowed.
func SaveReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var record models.ReportRecord
		if err := c.ShouldBindJSON(&record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		if err := models.ValidateReport(&record); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		totals := models.DeriveTotals(&record)
		if err := models.SaveReport(c.Request.Context(), &record); err != nil {
			config.LogError(config.GetLogger(), "handlers", "SaveReportHandler", "save", record.LocalId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to save locally: " + err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"report": record, "totals": totals})
	}
}

// ListReportsHandler lists records, optionally filtered by status. The
// retention sweeper runs first so confirmed records past the grace window
// never surface in a pending-work view.
func ListReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, err := syncengine.PurgeConfirmed(ctx); err != nil {
			config.LogError(config.GetLogger(), "handlers", "ListReportsHandler", "retention purge", nil, err)
		}

		var statuses []models.SyncStatus
		if v := c.Query("status"); v != "" {
			statuses = append(statuses, models.SyncStatus(v))
		}
		records, err := models.ListReports(ctx, statuses...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": records})
	}
}

func GetReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := models.GetReport(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": record, "totals": models.DeriveTotals(record)})
	}
}

func DeleteReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := models.DeleteReport(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DeriveTotalsHandler recomputes totals for a report draft without saving,
// for live editing.
func DeriveTotalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var record models.ReportRecord
		if err := c.ShouldBindJSON(&record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"totals": models.DeriveTotals(&record), "report": record})
	}
}

func SyncRunHandler(engine *syncengine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "remote sync endpoint not configured"})
			return
		}
		result, err := engine.RunSweep(c.Request.Context(), models.SyncTriggeredManual)
		if err != nil {
			if errors.Is(err, utils.ErrorSyncInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func SyncStatusHandler(engine *syncengine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			pending, err := models.PendingCount(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"pending_count": pending, "in_progress": false, "configured": false})
			return
		}
		status, err := engine.Status(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func ResolveConflictHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Action models.ConflictAction `json:"action"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		err := syncengine.Resolve(c.Request.Context(), c.Param("id"), req.Action)
		if err != nil {
			switch {
			case errors.Is(err, utils.ErrorRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			case errors.Is(err, utils.ErrorNotInConflict):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func ExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := exporter.ExportWorkbook(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=drillreports.xlsx")
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "handlers", "ExportHandler", "write workbook", nil, err)
		}
	}
}

func ImportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
			return
		}
		defer file.Close()

		result, err := exporter.ImportWorkbook(c.Request.Context(), file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ListDirectoryWorkersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workers, err := models.ListDirectoryWorkers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workers": workers})
	}
}

func SaveDirectoryWorkerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var worker models.DirectoryWorker
		if err := c.ShouldBindJSON(&worker); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := models.SaveDirectoryWorker(c.Request.Context(), &worker); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"worker": worker})
	}
}

func DeleteDirectoryWorkerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := models.DeleteDirectoryWorker(c.Request.Context(), uint(id)); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "worker not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func ListDirectoryRigsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rigs, err := models.ListDirectoryRigs(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rigs": rigs})
	}
}

func SaveDirectoryRigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rig models.DirectoryRig
		if err := c.ShouldBindJSON(&rig); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := models.SaveDirectoryRig(c.Request.Context(), &rig); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rig": rig})
	}
}

func DeleteDirectoryRigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := models.DeleteDirectoryRig(c.Request.Context(), uint(id)); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "rig not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
