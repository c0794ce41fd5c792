package handler

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"accountflow/internal/application"
	"accountflow/internal/pipeline"
	dErrors "accountflow/pkg/domainerrors"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateRequest is the body of POST /applications.
type CreateRequest struct {
	AccountType        string                 `json:"account_type" validate:"required,oneof=personal_checking personal_savings business_checking business_savings minor_account"`
	PersonalInfo       PersonalInfoRequest    `json:"personal_info"`
	EmploymentInfo     *EmploymentInfoRequest `json:"employment_info" validate:"omitempty"`
	Documents          []DocumentRequest      `json:"documents" validate:"omitempty,max=10,dive"`
	OverdraftRequested bool                   `json:"overdraft_requested"`
}

// PersonalInfoRequest carries the applicant's identity facts. Content checks
// beyond presence and length belong to the validation report.
type PersonalInfoRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	MiddleName   string `json:"middle_name" validate:"max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,max=254"`
	Phone        string `json:"phone" validate:"required,max=32"`
	DateOfBirth  string `json:"date_of_birth" validate:"required,max=10"`
	SSN          string `json:"ssn" validate:"required,max=11"`
	AddressLine1 string `json:"address_line1" validate:"required,max=200"`
	AddressLine2 string `json:"address_line2" validate:"max=200"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=50"`
	ZipCode      string `json:"zip_code" validate:"required,max=10"`
	Citizenship  string `json:"citizenship" validate:"omitempty,max=2"`
}

// EmploymentInfoRequest carries optional employment facts.
type EmploymentInfoRequest struct {
	EmployerName     string   `json:"employer_name" validate:"max=200"`
	Occupation       string   `json:"occupation" validate:"max=100"`
	AnnualIncome     *float64 `json:"annual_income" validate:"omitempty,gte=0"`
	EmploymentStatus string   `json:"employment_status" validate:"max=50"`
}

// DocumentRequest references an uploaded document.
type DocumentRequest struct {
	DocumentType string `json:"document_type" validate:"required,max=50"`
	DocumentID   string `json:"document_id" validate:"required,max=100"`
}

// Validate normalizes and checks the request.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.AccountType = strings.TrimSpace(r.AccountType)
	p := &r.PersonalInfo
	for _, f := range []*string{&p.FirstName, &p.MiddleName, &p.LastName, &p.Email, &p.Phone,
		&p.DateOfBirth, &p.SSN, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.ZipCode, &p.Citizenship} {
		*f = strings.TrimSpace(*f)
	}
	if p.Citizenship == "" {
		p.Citizenship = "US"
	}
	p.Citizenship = strings.ToUpper(p.Citizenship)
	if r.EmploymentInfo != nil && r.EmploymentInfo.EmploymentStatus == "" {
		r.EmploymentInfo.EmploymentStatus = "employed"
	}
	return validationError(validate.Struct(r))
}

// Input converts the request to the service input.
func (r *CreateRequest) Input(now time.Time) pipeline.CreateInput {
	p := r.PersonalInfo
	in := pipeline.CreateInput{
		AccountType: application.AccountType(r.AccountType),
		PersonalInfo: application.PersonalInfo{
			FirstName:    p.FirstName,
			MiddleName:   p.MiddleName,
			LastName:     p.LastName,
			Email:        p.Email,
			Phone:        p.Phone,
			DateOfBirth:  p.DateOfBirth,
			SSN:          p.SSN,
			AddressLine1: p.AddressLine1,
			AddressLine2: p.AddressLine2,
			City:         p.City,
			State:        p.State,
			ZipCode:      p.ZipCode,
			Citizenship:  p.Citizenship,
		},
		OverdraftRequested: r.OverdraftRequested,
	}
	if e := r.EmploymentInfo; e != nil {
		in.EmploymentInfo = &application.EmploymentInfo{
			EmployerName:     e.EmployerName,
			Occupation:       e.Occupation,
			AnnualIncome:     e.AnnualIncome,
			EmploymentStatus: e.EmploymentStatus,
		}
	}
	for _, d := range r.Documents {
		in.Documents = append(in.Documents, application.Document{
			DocumentType: strings.ToLower(strings.TrimSpace(d.DocumentType)),
			DocumentID:   strings.TrimSpace(d.DocumentID),
			UploadedAt:   now,
		})
	}
	return in
}

// ResolveRequest is the body of POST /applications/{id}/resolve.
type ResolveRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Reviewer string `json:"reviewer" validate:"required,max=100"`
	Reason   string `json:"reason" validate:"max=500"`
}

// Validate normalizes and checks the request.
func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Decision = strings.ToLower(strings.TrimSpace(r.Decision))
	r.Reviewer = strings.TrimSpace(r.Reviewer)
	r.Reason = strings.TrimSpace(r.Reason)
	return validationError(validate.Struct(r))
}

// validationError maps validator failures to a validation error keyed by
// JSON field path.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		fields[path] = describe(fe)
	}
	return dErrors.New(dErrors.CodeValidation, "invalid request").WithDetails(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "exceeds maximum length " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}
