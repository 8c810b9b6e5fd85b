/*
 * Copyright 2025 EmojiDB Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package emojidb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

const (
	engineFilePrefix = "engine"
	platformWindows  = "win32"
)

// BinaryDescriptor locates the engine executable for one platform and architecture.
type BinaryDescriptor struct {
	// Platform is the release platform name, e.g. "darwin", "linux" or "win32".
	Platform string
	// Architecture is the release architecture name, e.g. "arm64" or "x64".
	Architecture string
	// FileName is the release asset name, e.g. "engine-darwin-arm64".
	FileName string
	// LocalPath is where the binary is cached.
	LocalPath string
}

// NewBinaryDescriptor computes the engine file name for a Go GOOS/GOARCH pair
// and its location under cacheDir.
func NewBinaryDescriptor(goos, goarch, cacheDir string) *BinaryDescriptor {
	platform := releasePlatform(goos)
	arch := releaseArch(goarch)

	name := fmt.Sprintf("%s-%s-%s", engineFilePrefix, platform, arch)
	if platform == platformWindows {
		name += ".exe"
	}

	return &BinaryDescriptor{
		Platform:     platform,
		Architecture: arch,
		FileName:     name,
		LocalPath:    filepath.Join(cacheDir, name),
	}
}

// DownloadURL returns the release URL of the binary under baseURL.
func (b *BinaryDescriptor) DownloadURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + b.FileName
}

// releasePlatform maps GOOS to the platform names used by engine releases.
func releasePlatform(goos string) string {
	switch goos {
	case "windows", platformWindows:
		return platformWindows
	default:
		return goos
	}
}

// releaseArch maps GOARCH to the architecture names used by engine releases.
func releaseArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "ia32"
	default:
		return goarch
	}
}

// Binary returns the engine binary descriptor of the host.
func (c *Client) Binary() *BinaryDescriptor {
	return c.binary
}

// EnginePath returns the executable Connect runs: Config.EnginePath when set,
// otherwise the cached binary of the host.
func (c *Client) EnginePath() string {
	if c.config.EnginePath != "" {
		return c.config.EnginePath
	}
	return c.binary.LocalPath
}

// EnsureBinary returns the local path of the engine binary, downloading it if
// it is not cached yet. A cached binary is returned without network access.
func (c *Client) EnsureBinary(ctx context.Context) (string, error) {
	b := c.binary

	_, err := os.Stat(b.LocalPath)
	if err == nil {
		return b.LocalPath, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", &ProvisionError{FileName: b.FileName, Err: err}
	}

	c.logger.Info("Engine not found, downloading", "platform", b.Platform, "arch", b.Architecture, "path", b.LocalPath)

	if err := os.MkdirAll(filepath.Dir(b.LocalPath), 0o755); err != nil {
		return "", &ProvisionError{FileName: b.FileName, Err: fmt.Errorf("create cache dir: %w", err)}
	}

	u, err := url.Parse(b.DownloadURL(c.config.releaseBaseURL()))
	if err != nil {
		return "", &ProvisionError{FileName: b.FileName, Err: err}
	}

	if err := c.download(ctx, u); err != nil {
		c.logger.Error("Engine download failed", "file", b.FileName, "error", err)
		return "", err
	}

	c.logger.Info("Engine ready", "path", b.LocalPath)
	return b.LocalPath, nil
}

func (c *Client) download(ctx context.Context, u *url.URL) error {
	b := c.binary

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return &ProvisionError{FileName: b.FileName, URL: u.String(), Err: err}
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp, b.FileName, u); err != nil {
		return err
	}

	// atomic.WriteFile stages the body in a temp file next to LocalPath and
	// only renames it into place once fully written.
	if err := atomic.WriteFile(b.LocalPath, resp.Body); err != nil {
		return &ProvisionError{FileName: b.FileName, URL: u.String(), Err: err}
	}

	if b.Platform != platformWindows {
		if err := os.Chmod(b.LocalPath, 0o755); err != nil {
			_ = os.Remove(b.LocalPath)
			return &ProvisionError{FileName: b.FileName, URL: u.String(), Err: fmt.Errorf("mark executable: %w", err)}
		}
	}
	return nil
}
