package worker

// GenerationJobPayload asks a worker to generate the registers of one production.
// The guard (not yet generated, tenant scope) is applied before enqueueing.
type GenerationJobPayload struct {
	JobID        string `json:"job_id"`
	ProductionID string `json:"production_id"`
	QRToken      string `json:"qr_token"`
	RequestedBy  string `json:"requested_by,omitempty"`
}

// ComplaintAckPayload identifies a freshly submitted complaint.
type ComplaintAckPayload struct {
	ComplaintID string `json:"complaint_id"`
}

// EmailAttachment travels base64-encoded inside the job envelope.
type EmailAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	To          string            `json:"to"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Attachments []EmailAttachment `json:"attachments,omitempty"`
}
