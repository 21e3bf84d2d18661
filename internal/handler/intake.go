package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"opscore/internal/domain"
)

const (
	categoryContact = "CONTACT"
	categoryBooking = "BOOKING"

	// intakeBudget is the time a submission may take before it is reported slow.
	intakeBudget = 500 * time.Millisecond
)

// Intake accepts form submissions and hands them off for delivery. It only
// checks that the body decodes.
type Intake struct {
	logger SubmissionLogger
}

func NewIntake(logger SubmissionLogger) *Intake {
	return &Intake{logger: logger}
}

// Register mounts the submission routes, each behind its own limiter.
func (i *Intake) Register(g *echo.Group, contactLimit, bookingLimit echo.MiddlewareFunc) {
	g.POST("/contact", i.Contact, contactLimit)
	g.POST("/bookings", i.Booking, bookingLimit)
}

func (i *Intake) Contact(c echo.Context) error {
	start := time.Now()

	var req domain.ContactSubmission
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}

	reference := requestID(c)
	i.logger.Info("Contact form submission received", categoryContact, map[string]any{
		"reference":    reference,
		"email_domain": emailDomain(req.Email),
		"has_phone":    req.Phone != "",
		"message_len":  len(req.Message),
	})
	i.logger.Performance("contact_intake", time.Since(start), intakeBudget, nil)

	return c.JSON(http.StatusAccepted, domain.SubmissionAccepted{Status: "accepted", Reference: reference})
}

func (i *Intake) Booking(c echo.Context) error {
	start := time.Now()

	var req domain.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}

	reference := requestID(c)
	i.logger.Info("Booking request received", categoryBooking, map[string]any{
		"reference":      reference,
		"email_domain":   emailDomain(req.Email),
		"service":        req.Service,
		"preferred_date": req.PreferredDate,
	})
	i.logger.Performance("booking_intake", time.Since(start), intakeBudget, nil)

	return c.JSON(http.StatusAccepted, domain.SubmissionAccepted{Status: "accepted", Reference: reference})
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func emailDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found || domain == "" {
		return "unknown"
	}
	return strings.ToLower(domain)
}
