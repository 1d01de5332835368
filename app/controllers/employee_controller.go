package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/andsoler0309/HR-app-sub001/app/models"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/database"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/limits"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/payroll"
)

type createEmployeeRequest struct {
	CompanyID    string `json:"company_id" validate:"required"`
	OwnerUserID  string `json:"owner_user_id" validate:"required"`
	FullName     string `json:"full_name" validate:"required,max=200"`
	Email        string `json:"email" validate:"omitempty,email"`
	BaseSalary   string `json:"base_salary" validate:"required"`
	ContractType string `json:"contract_type" validate:"required"`
}

// planForUser resolves the company owner's plan from the profile mirror.
// Missing profile means free tier.
func planForUser(db *gorm.DB, userID string) limits.Plan {
	var profile models.Profile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return limits.PlanFree
	}
	if profile.SubscriptionStatus == models.ProfileStatusPremium {
		return limits.PlanPremium
	}
	return limits.PlanFree
}

// HandleCreateEmployee creates an employee after checking the plan ceiling.
// Free-tier companies cap at five active employees; a hit returns 402 with
// the upgrade target so the client can render the prompt.
func HandleCreateEmployee(c *fiber.Ctx) error {
	var req createEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	salary, err := decimal.NewFromString(req.BaseSalary)
	if err != nil || salary.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "base_salary is not a valid amount"})
	}
	ct, err := payroll.ParseContractType(req.ContractType)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	db := database.GetDB()

	var current int64
	if err := db.Model(&models.Employee{}).
		Where("company_id = ? AND active = ?", req.CompanyID, true).
		Count(&current).Error; err != nil {
		log.Errorf("employees: count failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}

	if err := limits.CheckEmployees(planForUser(db, req.OwnerUserID), int(current)); err != nil {
		var limitErr *limits.LimitExceededError
		if errors.As(err, &limitErr) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":        "limit_exceeded",
				"resource":     limitErr.Resource,
				"limit":        limitErr.Limit,
				"current":      limitErr.Current,
				"upgrade_plan": string(limitErr.UpgradePlan),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}

	employee := models.Employee{
		CompanyID:    req.CompanyID,
		FullName:     req.FullName,
		Email:        req.Email,
		BaseSalary:   salary,
		ContractType: string(ct),
		Active:       true,
	}
	if err := db.Create(&employee).Error; err != nil {
		log.Errorf("employees: create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(employee)
}

// HandleListEmployees lists a company's active employees.
func HandleListEmployees(c *fiber.Ctx) error {
	companyID := c.Query("company_id")
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "company_id is required"})
	}

	var employees []models.Employee
	err := database.GetDB().
		Where("company_id = ? AND active = ?", companyID, true).
		Order("full_name ASC").
		Find(&employees).Error
	if err != nil {
		log.Errorf("employees: list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"employees": employees, "count": len(employees)})
}
