package fonts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tdewolff/font"
)

// DefaultCSSEndpoint is the Google Fonts CSS API.
const DefaultCSSEndpoint = "https://fonts.googleapis.com/css2"

// DefaultMaxFontBytes caps one downloaded font file.
const DefaultMaxFontBytes = 10 << 20

// fontURLRe 从 CSS 响应中提取字体文件地址，例如 url(https://fonts.gstatic.com/s/inter/v18/xxx.woff2)
var fontURLRe = regexp.MustCompile(`url\((https?://[^)]+)\)`)

// Fetcher downloads remote fonts into a font directory. Specs use the form
// "google:Family:Weight", e.g. "google:Inter:800".
type Fetcher struct {
	// CSSEndpoint defaults to DefaultCSSEndpoint.
	CSSEndpoint string
	// MaxFontBytes defaults to DefaultMaxFontBytes; larger files are rejected.
	MaxFontBytes int64
	client       *retryablehttp.Client
}

// NewFetcher creates a Fetcher with a retrying HTTP client.
func NewFetcher() *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil
	return &Fetcher{CSSEndpoint: DefaultCSSEndpoint, MaxFontBytes: DefaultMaxFontBytes, client: client}
}

// ParseRemoteSpec splits "google:Family:Weight" into family and weight.
func ParseRemoteSpec(spec string) (family, weight string, ok bool) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 || parts[0] != "google" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// RemoteFileName is the identifier a fetched spec is stored under, e.g. "Inter-800.ttf".
func RemoteFileName(spec string) (string, error) {
	family, weight, ok := ParseRemoteSpec(spec)
	if !ok {
		return "", fmt.Errorf("无效的远程字体 %q，应为 google:FAMILY:WEIGHT", spec)
	}
	name := strings.ReplaceAll(family, " ", "") + "-" + weight + ".ttf"
	// 文件名只能是字体目录下的单个文件
	if !filepath.IsLocal(name) || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: 远程字体 %q 生成了非法文件名 %q", ErrFontUnavailable, spec, name)
	}
	return name, nil
}

// Fetch makes sure the font described by spec exists in dir and returns its
// identifier. Already downloaded fonts are not fetched again.
func (f *Fetcher) Fetch(ctx context.Context, spec, dir string) (string, error) {
	name, err := RemoteFileName(spec)
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return name, nil
	}

	family, weight, _ := ParseRemoteSpec(spec)
	endpoint := f.CSSEndpoint
	if endpoint == "" {
		endpoint = DefaultCSSEndpoint
	}
	cssURL := fmt.Sprintf("%s?family=%s:wght@%s", endpoint, url.QueryEscape(family), weight)
	css, err := f.get(ctx, cssURL, 1<<20)
	if err != nil {
		return "", fmt.Errorf("获取字体 CSS 失败: %w", err)
	}
	m := fontURLRe.FindSubmatch(css)
	if m == nil {
		return "", fmt.Errorf("字体 CSS 中没有 %s wght@%s 的下载地址", family, weight)
	}
	fontURL := string(m[1])

	maxBytes := f.MaxFontBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFontBytes
	}
	data, err := f.get(ctx, fontURL, maxBytes)
	if err != nil {
		return "", fmt.Errorf("下载字体文件失败: %w", err)
	}
	if isWOFF2(fontURL, data) {
		sfnt, err := font.ToSFNT(data)
		if err != nil {
			return "", fmt.Errorf("转换 WOFF2 字体失败: %w", err)
		}
		data = sfnt
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建字体目录失败: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("写入字体文件失败: %w", err)
	}
	return name, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	// 现代 UA 会拿到 WOFF2 地址
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s 返回状态码 %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s 超过大小上限 %d 字节", rawURL, limit)
	}
	return data, nil
}

func isWOFF2(rawURL string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(rawURL), ".woff2") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "wOF2"
}
