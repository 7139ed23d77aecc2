package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/model"
)

// FileBackend хранит документ в JSON-файле.
// Запись идёт во временный файл рядом с основным и завершается переименованием,
// поэтому читатель видит либо старый, либо новый документ целиком.
type FileBackend struct {
	path   string
	logger *zap.Logger
}

// NewFileBackend создаёт файловое хранилище по указанному пути.
func NewFileBackend(path string, logger *zap.Logger) *FileBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileBackend{
		path:   path,
		logger: logger,
	}
}

// Path возвращает путь к файлу данных.
func (b *FileBackend) Path() string {
	return b.path
}

// Load читает документ из файла. Отсутствующий или повреждённый файл даёт ErrDocumentMissing,
// прочие ошибки чтения дают ErrStorageUnavailable;
// повреждённый файл перед этим переименовывается, чтобы его содержимое не потерялось при следующей записи.
func (b *FileBackend) Load(_ context.Context) (*model.Document, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: read %s: %w", ErrDocumentMissing, b.path, err)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, b.path, err)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		b.quarantine()
		return nil, fmt.Errorf("%w: decode %s: %w", ErrDocumentMissing, b.path, err)
	}
	return doc, nil
}

func (b *FileBackend) quarantine() {
	target := fmt.Sprintf("%s.corrupt-%s", b.path, time.Now().Format("20060102150405"))
	if err := os.Rename(b.path, target); err != nil {
		b.logger.Warn("cannot move corrupt data file aside", zap.String("path", b.path), zap.Error(err))
		return
	}
	b.logger.Warn("corrupt data file moved aside", zap.String("path", b.path), zap.String("target", target))
}

// Save атомарно заменяет файл данных.
func (b *FileBackend) Save(_ context.Context, doc *model.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// Close ничего не делает: файл не держится открытым между операциями.
func (b *FileBackend) Close() error {
	return nil
}
