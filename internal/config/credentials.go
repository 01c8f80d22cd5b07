package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"gopkg.in/yaml.v3"
)

// DefaultKeysFile 是密钥文件的默认位置（不纳入版本控制）。
const DefaultKeysFile = "keys/openai-keys.yaml"

// ErrMissingAPIKey is returned when the key file has no API_KEY entry.
var ErrMissingAPIKey = errors.New("API_KEY is missing from credentials file")

// Credentials 对应密钥文件中的组织 ID 与 API Key。
type Credentials struct {
	OrgID  string `yaml:"ORG_ID"`
	APIKey string `yaml:"API_KEY"`
}

// LoadCredentials 读取 YAML 密钥文件。文件缺失或格式错误都视为启动失败。
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials file %s: %w", path, err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials file %s: %w", path, err)
	}

	creds.OrgID = strings.TrimSpace(creds.OrgID)
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	if creds.APIKey == "" {
		return Credentials{}, fmt.Errorf("%s: %w", path, ErrMissingAPIKey)
	}

	return creds, nil
}

// NewOpenAIClient 根据凭证创建 OpenAI 客户端。SDK 自带的重试被关闭，
// 失败的调用直接返回给调用方。
func (c AIConfig) NewOpenAIClient(creds Credentials) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(creds.APIKey),
		option.WithMaxRetries(0),
	}
	if creds.OrgID != "" {
		opts = append(opts, option.WithOrganization(creds.OrgID))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(c.RequestTimeout))
	}
	if baseURL := c.OpenAIBaseURL; baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return openai.NewClient(opts...)
}
