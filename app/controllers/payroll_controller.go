package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andsoler0309/HR-app-sub001/app/models"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/database"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/payroll"
)

type payrollConfigRequest struct {
	CompanyID                     string `json:"company_id" validate:"required"`
	Year                          int    `json:"year" validate:"required,gte=2000,lte=2100"`
	MinimumWage                   string `json:"minimum_wage" validate:"required"`
	TransportationAllowance       string `json:"transportation_allowance"`
	HealthContributionPercentage  string `json:"health_contribution_percentage" validate:"required"`
	PensionContributionPercentage string `json:"pension_contribution_percentage" validate:"required"`
	SolidarityFundThreshold       string `json:"solidarity_fund_threshold"`
	UVTValue                      string `json:"uvt_value" validate:"required"`
}

func (r *payrollConfigRequest) toModel() (*models.PayrollConfig, error) {
	cfg := &models.PayrollConfig{CompanyID: r.CompanyID, Year: r.Year}
	var err error
	if cfg.MinimumWage, err = decimal.NewFromString(r.MinimumWage); err != nil {
		return nil, errors.New("minimum_wage is not a valid amount")
	}
	if r.TransportationAllowance != "" {
		if cfg.TransportationAllowance, err = decimal.NewFromString(r.TransportationAllowance); err != nil {
			return nil, errors.New("transportation_allowance is not a valid amount")
		}
	}
	if cfg.HealthContributionPercentage, err = decimal.NewFromString(r.HealthContributionPercentage); err != nil {
		return nil, errors.New("health_contribution_percentage is not a valid percentage")
	}
	if cfg.PensionContributionPercentage, err = decimal.NewFromString(r.PensionContributionPercentage); err != nil {
		return nil, errors.New("pension_contribution_percentage is not a valid percentage")
	}
	if r.SolidarityFundThreshold != "" {
		if cfg.SolidarityFundThreshold, err = decimal.NewFromString(r.SolidarityFundThreshold); err != nil {
			return nil, errors.New("solidarity_fund_threshold is not a valid amount")
		}
	}
	if cfg.UVTValue, err = decimal.NewFromString(r.UVTValue); err != nil {
		return nil, errors.New("uvt_value is not a valid amount")
	}
	return cfg, nil
}

// HandleCreatePayrollConfig stores the statutory values for one company and
// year. The company+year pair is unique; a second create is a conflict.
func HandleCreatePayrollConfig(c *fiber.Ctx) error {
	var req payrollConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	cfg, err := req.toModel()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := payroll.ConfigFromModel(cfg).Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	db := database.GetDB()
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(cfg)
	if result.Error != nil {
		log.Errorf("payroll config: create failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "config_already_exists"})
	}
	return c.Status(fiber.StatusCreated).JSON(cfg)
}

// HandleGetPayrollConfig returns the config for ?company_id=&year=.
func HandleGetPayrollConfig(c *fiber.Ctx) error {
	companyID := c.Query("company_id")
	year := c.QueryInt("year")
	if companyID == "" || year == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "company_id and year are required"})
	}

	var cfg models.PayrollConfig
	err := database.GetDB().Where("company_id = ? AND year = ?", companyID, year).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "config_not_found"})
		}
		log.Errorf("payroll config: lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(cfg)
}

// HandleUpdatePayrollConfig updates an unlocked config. The update predicate
// includes locked_at IS NULL, so a config referenced by a calculation can
// never change underneath historical payroll runs.
func HandleUpdatePayrollConfig(c *fiber.Ctx) error {
	var req payrollConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	cfg, err := req.toModel()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := payroll.ConfigFromModel(cfg).Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	db := database.GetDB()
	result := db.Model(&models.PayrollConfig{}).
		Where("company_id = ? AND year = ? AND locked_at IS NULL", cfg.CompanyID, cfg.Year).
		Updates(map[string]interface{}{
			"minimum_wage":                    cfg.MinimumWage,
			"transportation_allowance":        cfg.TransportationAllowance,
			"health_contribution_percentage":  cfg.HealthContributionPercentage,
			"pension_contribution_percentage": cfg.PensionContributionPercentage,
			"solidarity_fund_threshold":       cfg.SolidarityFundThreshold,
			"uvt_value":                       cfg.UVTValue,
		})
	if result.Error != nil {
		log.Errorf("payroll config: update failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}
	if result.RowsAffected == 0 {
		var existing models.PayrollConfig
		if err := db.Where("company_id = ? AND year = ?", cfg.CompanyID, cfg.Year).First(&existing).Error; err == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "config_locked"})
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "config_not_found"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"updated": true})
}

type calculateDeductionsRequest struct {
	CompanyID    string `json:"company_id" validate:"required"`
	Year         int    `json:"year" validate:"required,gte=2000,lte=2100"`
	GrossSalary  string `json:"gross_salary" validate:"required"`
	ContractType string `json:"contract_type" validate:"required"`
}

// HandleCalculateDeductions runs the deduction engine against the company's
// yearly config. The first calculation locks the config row.
func HandleCalculateDeductions(c *fiber.Ctx) error {
	var req calculateDeductionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	gross, err := decimal.NewFromString(req.GrossSalary)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "gross_salary is not a valid amount"})
	}
	ct, err := payroll.ParseContractType(req.ContractType)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	db := database.GetDB()
	var cfg models.PayrollConfig
	if err := db.Where("company_id = ? AND year = ?", req.CompanyID, req.Year).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "config_not_found"})
		}
		log.Errorf("deductions: config lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}

	breakdown, err := payroll.CalculateDeductions(gross, ct, payroll.ConfigFromModel(&cfg))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	// Lock on first reference. The predicate makes concurrent calculations
	// race-free; losing the race just means someone else locked it first.
	if !cfg.IsLocked() {
		now := time.Now()
		if err := db.Model(&models.PayrollConfig{}).
			Where("id = ? AND locked_at IS NULL", cfg.ID).
			Update("locked_at", &now).Error; err != nil {
			log.Errorf("deductions: config lock failed: %v", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"company_id":    req.CompanyID,
		"year":          req.Year,
		"contract_type": string(ct),
		"gross_salary":  gross,
		"deductions":    breakdown,
	})
}
