package handlers

import (
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/models"
	"alfredoptarigan/cv-validator/internal/repositories"
	"alfredoptarigan/cv-validator/internal/services"
)

const maxFieldLength = 5000

type SubmissionHandler struct {
	subRepo        repositories.SubmissionRepository
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	worker         services.Worker
	maxFileSize    int64
	sanitizer      *bluemonday.Policy
	log            *zap.Logger
}

func NewSubmissionHandler(
	subRepo repositories.SubmissionRepository,
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	worker services.Worker,
	maxFileSize int64,
	log *zap.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		subRepo:        subRepo,
		docRepo:        docRepo,
		storageService: storageService,
		pdfParser:      pdfParser,
		worker:         worker,
		maxFileSize:    maxFileSize,
		sanitizer:      bluemonday.StrictPolicy(),
		log:            log,
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// HandleSubmit handles POST /submissions
func (h *SubmissionHandler) HandleSubmit(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "failed to parse multipart form")
	}

	field := func(name string) string {
		if values := form.Value[name]; len(values) > 0 {
			// Strip markup, keep plain-text entities readable.
			return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(values[0])))
		}
		return ""
	}
	optional := func(name string) *string {
		if v := field(name); v != "" {
			return &v
		}
		return nil
	}

	name := field("name")
	email := field("email")
	phone := optional("phone")
	skills := optional("skills")
	experience := optional("experience")

	if name == "" {
		return badRequest(c, "name is required")
	}
	if email == "" {
		return badRequest(c, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return badRequest(c, "email is not a valid address")
	}
	for label, v := range map[string]*string{"name": &name, "phone": phone, "skills": skills, "experience": experience} {
		if v != nil && len(*v) > maxFieldLength {
			return badRequest(c, fmt.Sprintf("%s is too long. Max length: %d characters", label, maxFieldLength))
		}
	}

	cvFiles := form.File["cv"]
	if len(cvFiles) == 0 {
		return badRequest(c, "cv file is required")
	}
	cvFile := cvFiles[0]

	if cvFile.Size > h.maxFileSize {
		return badRequest(c, fmt.Sprintf("CV file too large. Max size: %d bytes", h.maxFileSize))
	}
	if strings.ToLower(filepath.Ext(cvFile.Filename)) != ".pdf" {
		return badRequest(c, "CV must be a .pdf file")
	}

	content, err := readUpload(cvFile)
	if err != nil {
		return badRequest(c, "failed to read CV file")
	}
	pageCount, err := h.pdfParser.PageCount(content)
	if err != nil {
		return badRequest(c, "CV must be a readable PDF document")
	}

	filename, filePath, err := h.storageService.SaveFile(cvFile, "cv")
	if err != nil {
		if errors.Is(err, services.ErrInvalidExtension) {
			return badRequest(c, "CV must be a .pdf file")
		}
		h.log.Error("❌ Failed to store CV", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save CV file")
	}

	now := time.Now()
	doc := models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: cvFile.Filename,
		MimeType:         "application/pdf",
		FilePath:         filePath,
		SizeBytes:        cvFile.Size,
		PageCount:        pageCount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.docRepo.Create(&doc); err != nil {
		_ = h.storageService.DeleteFile(filename)
		h.log.Error("❌ Failed to save document record", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save CV document record")
	}

	sub := models.Submission{
		ID:         uuid.New(),
		FullName:   name,
		Email:      email,
		Phone:      phone,
		Skills:     skills,
		Experience: experience,
		DocumentID: doc.ID,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.subRepo.Create(&sub); err != nil {
		_ = h.docRepo.Delete(doc.ID)
		_ = h.storageService.DeleteFile(filename)
		h.log.Error("❌ Failed to save submission", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create submission")
	}

	h.worker.EnqueueJob(sub.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.SubmissionResponse{
		ID:         sub.ID.String(),
		Status:     string(sub.Status),
		DocumentID: doc.ID.String(),
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
