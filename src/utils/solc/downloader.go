package solc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cassc/smart-contract-database-builder/src/utils/config"
	"github.com/cassc/smart-contract-database-builder/src/utils/logger"
	"github.com/cassc/smart-contract-database-builder/src/utils/task"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Downloader fetches released solc builds into the local binary cache.
// Writes to the cache happen only here, download-solc must not run
// concurrently with indexing.
type Downloader struct {
	config *config.Config
	log    *logrus.Entry
	client *resty.Client
}

type releaseList struct {
	Builds []releaseBuild `json:"builds"`
}

type releaseBuild struct {
	Path        string `json:"path"`
	Version     string `json:"version"`
	Prerelease  string `json:"prerelease"`
	LongVersion string `json:"longVersion"`
}

func NewDownloader(config *config.Config) (self *Downloader) {
	self = new(Downloader)
	self.config = config
	self.log = logger.NewSublogger("solc-downloader")
	self.client = resty.New().
		SetBaseURL(config.Solc.ReleaseBaseURL)
	return
}

// DownloadAll fetches every released build that isn't cached yet.
// Idempotent, binaries already on disk are skipped.
func (self *Downloader) DownloadAll(ctx context.Context) (err error) {
	err = os.MkdirAll(self.config.Solc.CacheDir, 0o755)
	if err != nil {
		return
	}

	builds, err := self.fetchReleaseList(ctx)
	if err != nil {
		return
	}

	var downloaded, skipped int
	for _, build := range builds {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Nightlies don't map to a pinned contract version
		if build.Prerelease != "" {
			continue
		}

		version, versionErr := ParseVersion(build.Version)
		if versionErr != nil {
			self.log.WithField("version", build.Version).Warn("Skipping unparsable release")
			continue
		}

		target := filepath.Join(self.config.Solc.CacheDir, BinaryName(version))
		if _, statErr := os.Stat(target); statErr == nil {
			skipped += 1
			continue
		}

		err = self.download(ctx, build.Path, target)
		if err != nil {
			return fmt.Errorf("download solc %s: %w", version, err)
		}
		downloaded += 1

		self.log.WithField("version", version).Debug("Downloaded solc binary")
	}

	self.log.WithField("downloaded", downloaded).WithField("skipped", skipped).Info("Solc binary cache up to date")
	return
}

func (self *Downloader) fetchReleaseList(ctx context.Context) (builds []releaseBuild, err error) {
	list := new(releaseList)
	resp, err := self.client.R().
		SetContext(ctx).
		SetResult(list).
		Get(self.config.Solc.ReleaseListURL)
	if err != nil {
		return
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch release list: %s", resp.Status())
	}
	return list.Builds, nil
}

// download writes to a temp file first and renames so a cancelled run never
// leaves a truncated binary in the cache
func (self *Downloader) download(ctx context.Context, remotePath, target string) (err error) {
	temp := target + ".part"

	err = task.NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(self.config.Solc.DownloadMaxElapsedTime).
		WithMaxInterval(self.config.Solc.DownloadMaxInterval).
		WithOnError(func(err error) {
			self.log.WithError(err).WithField("path", remotePath).Warn("Download failed, retrying")
		}).
		Run(func() error {
			resp, reqErr := self.client.R().
				SetContext(ctx).
				SetOutput(temp).
				Get(remotePath)
			if reqErr != nil {
				return reqErr
			}
			if !resp.IsSuccess() {
				return fmt.Errorf("download %s: %s", remotePath, resp.Status())
			}
			return nil
		})
	if err != nil {
		os.Remove(temp)
		return
	}

	err = os.Chmod(temp, 0o755)
	if err != nil {
		return
	}
	return os.Rename(temp, target)
}
