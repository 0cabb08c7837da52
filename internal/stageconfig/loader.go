package stageconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read stage config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}

	return cfg, data, nil
}

// Parse decodes and validates YAML bytes.
// 누락된 필드는 zero value로 남고 Validate에서 실패함 (로드 후 기본값 보정 없음)
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode stage config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct/slice 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunSnapshot creates a snapshot for audit
func NewRunSnapshot(cfg *Config, yamlData []byte, gitCommit string) (*RunSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &RunSnapshot{
		ConfigHash:    hash,
		ConfigVersion: cfg.Meta.Version,
		ConfigYAML:    string(yamlData),
		GitCommit:     gitCommit,
		CreatedAt:     time.Now(),
	}, nil
}
