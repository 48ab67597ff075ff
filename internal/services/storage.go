package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var ErrInvalidExtension = errors.New("invalid file extension")

type StorageService interface {
	SaveFile(file *multipart.FileHeader, prefix string) (string, string, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
	// ReadDocument resolves a stored location (local path or http(s) URL) to its bytes.
	ReadDocument(location string) ([]byte, error)
}

type storageService struct {
	uploadPath   string
	fetchTimeout time.Duration
}

func NewStorageService(uploadPath string, fetchTimeout time.Duration) StorageService {
	return &storageService{
		uploadPath:   uploadPath,
		fetchTimeout: fetchTimeout,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveFile(file *multipart.FileHeader, prefix string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidExtension, ext)
	}

	uniqueFilename := fmt.Sprintf("%s_%s%s", prefix, uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	if err := writeFile(filePath, src); err != nil {
		return "", "", err
	}

	return uniqueFilename, filePath, nil
}

// writeFile copies src to path and removes the partial file on failure.
func writeFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to save file: %w", err)
	}

	return nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filename)
}

func (s *storageService) DeleteFile(filename string) error {
	filePath := s.GetFilePath(filename)
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *storageService) ReadDocument(location string) ([]byte, error) {
	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return s.fetchRemote(location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document is empty: %s", location)
	}
	return data, nil
}

func (s *storageService) fetchRemote(location string) ([]byte, error) {
	agent := fiber.Get(location)
	if s.fetchTimeout > 0 {
		agent.Timeout(s.fetchTimeout)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to fetch document: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("failed to fetch document: unexpected status %d", code)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("document is empty: %s", location)
	}

	return body, nil
}
