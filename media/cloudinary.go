package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/ratelimit"
	"resty.dev/v3"

	"floordesign/config"
	"floordesign/logger"
)

// CloudinaryStore talks to the Cloudinary upload API. Uploads use the
// unsigned preset unless an API key and secret are configured.
type CloudinaryStore struct {
	rl         ratelimit.Limiter
	cfg        config.CloudinaryConfig
	httpClient *resty.Client
	now        func() time.Time
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Result    string `json:"result"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewCloudinaryStore creates a store limited to rps requests per second.
func NewCloudinaryStore(cfg config.CloudinaryConfig, rps int) (*CloudinaryStore, error) {
	if cfg.CloudName == "" {
		return nil, errors.New("cloudinary: cloud_name is required")
	}
	if cfg.UploadPreset == "" && (cfg.APIKey == "" || cfg.APISecret == "") {
		return nil, errors.New("cloudinary: upload_preset or api_key/api_secret is required")
	}
	if rps <= 0 {
		rps = 5
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &CloudinaryStore{
		rl:         ratelimit.New(rps),
		cfg:        cfg,
		httpClient: client,
		now:        time.Now,
	}, nil
}

func (c *CloudinaryStore) endpoint(action string) string {
	return fmt.Sprintf("%s/%s/image/%s", strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.CloudName, action)
}

// Upload posts the image as multipart form data and returns its secure URL.
func (c *CloudinaryStore) Upload(ctx context.Context, data []byte, publicID, folder string) (string, error) {
	params := map[string]string{
		"folder":    folder,
		"public_id": publicID,
	}
	if c.cfg.UploadPreset != "" {
		params["upload_preset"] = c.cfg.UploadPreset
	}
	c.sign(params)

	c.rl.Take()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(params).
		SetFileReader("file", publicID, bytes.NewReader(data)).
		Post(c.endpoint("upload"))
	if err != nil {
		return "", errors.Wrap(err, "cloudinary upload")
	}

	var body cloudinaryResponse
	if err := json.Unmarshal([]byte(resp.String()), &body); err != nil {
		return "", errors.Errorf("cloudinary upload: HTTP %d: unreadable response", resp.StatusCode())
	}
	if body.Error != nil {
		return "", errors.Errorf("cloudinary upload: %s", body.Error.Message)
	}
	if resp.IsError() || body.SecureURL == "" {
		return "", errors.Errorf("cloudinary upload: HTTP %d", resp.StatusCode())
	}

	logger.Debug("Uploaded %s/%s to Cloudinary", folder, publicID)
	return body.SecureURL, nil
}

// Delete destroys an image. It requires API credentials.
func (c *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return errors.New("cloudinary destroy requires api_key and api_secret")
	}

	params := map[string]string{"public_id": publicID}
	c.sign(params)

	c.rl.Take()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(params).
		Post(c.endpoint("destroy"))
	if err != nil {
		return errors.Wrap(err, "cloudinary destroy")
	}

	var body cloudinaryResponse
	if err := json.Unmarshal([]byte(resp.String()), &body); err != nil {
		return errors.Errorf("cloudinary destroy: HTTP %d: unreadable response", resp.StatusCode())
	}
	if body.Error != nil {
		return errors.Errorf("cloudinary destroy: %s", body.Error.Message)
	}
	if resp.IsError() {
		return errors.Errorf("cloudinary destroy: HTTP %d", resp.StatusCode())
	}
	if body.Result != "ok" && body.Result != "not found" {
		return errors.Errorf("cloudinary destroy: unexpected result %q", body.Result)
	}
	return nil
}

// sign adds api_key, timestamp and signature when credentials are set.
func (c *CloudinaryStore) sign(params map[string]string) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return
	}
	params["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
	params["signature"] = signParams(params, c.cfg.APISecret)
	params["api_key"] = c.cfg.APIKey
}

// signParams is sha1 over the sorted "k=v&k=v" string followed by the secret.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == "file" || k == "api_key" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
