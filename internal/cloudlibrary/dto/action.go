package dto

// ActionResponse is the result of a borrow or return action on the
// detail endpoint.
type ActionResponse struct {
	Error  *ActionError `json:"error"`
	Status string       `json:"status"`
}

// ActionError is the server-side failure record inside an action
// response.
type ActionError struct {
	Msg                 string `json:"msg"`
	ReaktorErrorMessage string `json:"reaktorErrorMessage"`
}

// reaktorTooManyLoans is the backend's code for a loan quota hit.
const reaktorTooManyLoans = "TOO_MANY_LOANS"

// IsLoanLimit reports whether the action failed because the account is
// at its loan limit.
func (r *ActionResponse) IsLoanLimit() bool {
	return r.Error != nil && r.Error.ReaktorErrorMessage == reaktorTooManyLoans
}

// Failed reports whether the action failed for any reason.
func (r *ActionResponse) Failed() bool {
	return r.Error != nil || r.Status == "FAILED"
}

// Message returns the most specific failure description available.
func (r *ActionResponse) Message() string {
	if r.Error != nil {
		if r.Error.Msg != "" {
			return r.Error.Msg
		}
		if r.Error.ReaktorErrorMessage != "" {
			return r.Error.ReaktorErrorMessage
		}
		return "unknown error"
	}
	if r.Status == "FAILED" {
		return "status FAILED"
	}
	return ""
}
