package integration

import (
	"context"

	"accountflow/internal/application"
)

// Check names one external verification.
type Check string

const (
	CheckIdentity   Check = "identity_verification"
	CheckFraud      Check = "fraud_database"
	CheckKYC        Check = "kyc_aml_screening"
	CheckCredit     Check = "credit_check"
	CheckEmployment Check = "employment_verification"
	CheckDocument   Check = "document_verification"
)

// StandardChecks run for every application, in this order.
var StandardChecks = []Check{CheckIdentity, CheckFraud, CheckKYC}

// AllChecks lists every check the gateway can run.
var AllChecks = []Check{CheckIdentity, CheckFraud, CheckKYC, CheckCredit, CheckEmployment, CheckDocument}

// Prefix is the request id prefix of the check.
func (c Check) Prefix() string {
	switch c {
	case CheckIdentity:
		return "IDV"
	case CheckFraud:
		return "FRD"
	case CheckKYC:
		return "KYC"
	case CheckCredit:
		return "CRD"
	case CheckEmployment:
		return "EMP"
	case CheckDocument:
		return "DOC"
	default:
		return "INT"
	}
}

// Request carries the applicant facts a check needs. Document is set only
// for document verification.
type Request struct {
	ApplicationID string
	Personal      application.PersonalInfo
	Employment    *application.EmploymentInfo
	Document      *application.Document
}

// RequestFor builds a request from an application.
func RequestFor(app *application.Application) Request {
	return Request{
		ApplicationID: app.ID,
		Personal:      app.PersonalInfo,
		Employment:    app.EmploymentInfo,
	}
}

// Verifier is the capability set of the external verification services.
// Implementations may block and should honour ctx cancellation.
type Verifier interface {
	VerifyIdentity(ctx context.Context, req Request) (*application.Integration, error)
	CheckFraudDatabase(ctx context.Context, req Request) (*application.Integration, error)
	ScreenKYC(ctx context.Context, req Request) (*application.Integration, error)
	CheckCredit(ctx context.Context, req Request) (*application.Integration, error)
	VerifyEmployment(ctx context.Context, req Request) (*application.Integration, error)
	VerifyDocument(ctx context.Context, req Request) (*application.Integration, error)
}
