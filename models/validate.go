package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ReportInput is the API-boundary shape of a report save. Validation
// failures are rejected here and never reach the local store.
type ReportInput struct {
	ReportDate   string `json:"report_date" validate:"required"`
	ClientName   string `json:"client_name" validate:"required"`
	SiteLocation string `json:"site_location" validate:"required"`
}

// ValidateReport enforces the boundary rules: required identity fields,
// the fixed enum vocabularies where a value is present at all, and the
// store-selection rule for store-sourced materials.
func ValidateReport(record *ReportRecord) error {
	input := ReportInput{
		ReportDate:   record.ReportDate.Format("2006-01-02"),
		ClientName:   strings.TrimSpace(record.ClientName),
		SiteLocation: strings.TrimSpace(record.SiteLocation),
	}
	if record.ReportDate.IsZero() {
		input.ReportDate = ""
	}
	if err := validate.Struct(input); err != nil {
		return err
	}

	switch record.JobType {
	case "", JobTypeDirect, JobTypeSubcontract:
	default:
		return fmt.Errorf("unknown job type %q", record.JobType)
	}
	switch record.MaterialsBy {
	case "", MaterialsProviderCompany, MaterialsProviderClient, MaterialsProviderStore:
	default:
		return fmt.Errorf("unknown materials provider %q", record.MaterialsBy)
	}

	if record.MaterialsBy == MaterialsProviderStore && strings.TrimSpace(record.MaterialsStoreName) == "" {
		return errors.New("materials store name is required when materials are store-sourced")
	}

	for i := range record.Workers {
		if strings.TrimSpace(record.Workers[i].Name) == "" {
			return fmt.Errorf("worker entry %d: name is required", i+1)
		}
	}
	for i := range record.Expenses {
		if strings.TrimSpace(record.Expenses[i].Description) == "" {
			return fmt.Errorf("expense entry %d: description is required", i+1)
		}
	}

	return nil
}
