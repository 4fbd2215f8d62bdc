package thresholdconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/quadrant/internal/classifier"
)

// Load reads a YAML threshold file and returns it with its raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*File, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return f, data, nil
}

// Parse decodes and validates YAML threshold data
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty threshold file", classifier.ErrInvalidThresholds)
		}
		return nil, fmt.Errorf("%w: %v", classifier.ErrInvalidThresholds, err)
	}

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate requires both boundaries unless a preset supplies them
func Validate(f *File) error {
	if f.Preset == "" {
		if f.MarginPct == nil {
			return fmt.Errorf("%w: margin_pct is required", classifier.ErrInvalidThresholds)
		}
		if f.Multiple == nil {
			return fmt.Errorf("%w: multiple is required", classifier.ErrInvalidThresholds)
		}
	}

	t, err := f.Thresholds()
	if err != nil {
		return err
	}
	return t.Validate()
}

// Hash generates SHA256 hash from thresholds (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(t classifier.Thresholds) (string, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
