package domain

type ContactSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

type BookingRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Service       string `json:"service"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type SubmissionAccepted struct {
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
}
