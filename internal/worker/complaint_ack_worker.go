package worker

// complaint_ack_worker.go
// Renders the PDF receipt of a new complaint, stores it next to the
// complaint's attachments and mails it to the customer when an address was given.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailQueue is satisfied by *Dispatcher.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ComplaintAckWorker struct {
	complaints repository.ComplaintRepository
	companies  repository.CompanyRepository
	files      infra.FileStore
	email      EmailQueue
}

func NewComplaintAckWorker(
	complaints repository.ComplaintRepository,
	companies repository.CompanyRepository,
	files infra.FileStore,
	email EmailQueue,
) *ComplaintAckWorker {
	return &ComplaintAckWorker{complaints: complaints, companies: companies, files: files, email: email}
}

// ReceiptKey is the storage key of a complaint's PDF receipt.
func ReceiptKey(complaintNumber string) string {
	return fmt.Sprintf("complaints/%s/receipt.pdf", complaintNumber)
}

func (w *ComplaintAckWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ComplaintAckPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("complaint_ack: invalid payload: %w", err)
	}
	id, err := uuid.Parse(payload.ComplaintID)
	if err != nil {
		return fmt.Errorf("complaint_ack: invalid complaint id %q: %w", payload.ComplaintID, err)
	}

	c, err := w.complaints.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("complaint_ack: load complaint: %w", err)
	}

	companyName := ""
	if c.CompanyID != nil {
		if company, err := w.companies.FindByID(ctx, *c.CompanyID); err == nil {
			companyName = company.Name
		}
	}

	pdf, err := infra.ComplaintReceiptPDF(c, companyName)
	if err != nil {
		return err
	}
	key := ReceiptKey(c.ComplaintNumber)
	if err := w.files.Upload(ctx, key, bytes.NewReader(pdf), "application/pdf"); err != nil {
		// the mail still carries the receipt
		log.Error().Err(err).Str("complaint", c.ComplaintNumber).Msg("complaint_ack: store receipt failed")
	}

	if c.CustomerEmail == nil || *c.CustomerEmail == "" {
		log.Info().Str("complaint", c.ComplaintNumber).Msg("complaint_ack: receipt stored, no email given")
		return nil
	}

	return w.email.EnqueueEmail(ctx, EmailJobPayload{
		To:      *c.CustomerEmail,
		Subject: "Pengaduan diterima " + c.ComplaintNumber,
		Body: fmt.Sprintf(
			"Yth. %s,\n\nPengaduan Anda telah kami terima dengan nomor %s.\n"+
				"Gunakan nomor tersebut bersama nomor telepon Anda untuk melacak status pengaduan.\n",
			c.CustomerName, c.ComplaintNumber),
		Attachments: []EmailAttachment{{
			Name:        c.ComplaintNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
}
