package checkout

// Status is the wire name of an outcome variant.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Outcome is the terminal result of one checkout. The set of implementations
// is closed: Success, Failure and Cancelled.
type Outcome interface {
	Status() Status
	isOutcome()
}

// Success reports a captured payment.
type Success struct {
	PaymentID string
	OrderID   string
	Signature string
}

// Failure reports a provider-side failure or a dispatch failure.
type Failure struct {
	Error PaymentError
}

// Cancelled reports that the customer abandoned the checkout.
type Cancelled struct{}

func (Success) Status() Status   { return StatusSuccess }
func (Failure) Status() Status   { return StatusError }
func (Cancelled) Status() Status { return StatusCancelled }

func (Success) isOutcome()   {}
func (Failure) isOutcome()   {}
func (Cancelled) isOutcome() {}

// PaymentError carries the provider's diagnostic fields. Empty strings are absent.
type PaymentError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source,omitempty"`
	Step        string `json:"step,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// SuccessData is what a provider reports on a successful checkout.
type SuccessData struct {
	PaymentID string
	OrderID   string
	Signature string
}

// Record is the flat serialisable form of an Outcome.
type Record struct {
	Status    Status        `json:"status"`
	PaymentID string        `json:"payment_id,omitempty"`
	OrderID   string        `json:"order_id,omitempty"`
	Signature string        `json:"signature,omitempty"`
	Error     *PaymentError `json:"error,omitempty"`
}

// ToRecord flattens an outcome. A nil or foreign outcome flattens to a failure.
func ToRecord(o Outcome) Record {
	switch v := o.(type) {
	case Success:
		return Record{Status: StatusSuccess, PaymentID: v.PaymentID, OrderID: v.OrderID, Signature: v.Signature}
	case Failure:
		e := v.Error
		return Record{Status: StatusError, Error: &e}
	case Cancelled:
		return Record{Status: StatusCancelled}
	default:
		return Record{Status: StatusError, Error: &PaymentError{Code: UnknownCode, Description: DefaultFailureDescription}}
	}
}

// Outcome rebuilds the variant held by the record. Unknown statuses and error
// records without details decode as failures.
func (r Record) Outcome() Outcome {
	switch r.Status {
	case StatusSuccess:
		return Success{PaymentID: r.PaymentID, OrderID: r.OrderID, Signature: r.Signature}
	case StatusCancelled:
		return Cancelled{}
	default:
		if r.Error == nil {
			return Failure{Error: PaymentError{Code: UnknownCode, Description: DefaultFailureDescription}}
		}
		return Failure{Error: *r.Error}
	}
}
