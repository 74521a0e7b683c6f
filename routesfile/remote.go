package routesfile

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zalando/fastlane/routing"
)

var errContentNotChanged = errors.New("content did not change, 304 response status code")

// DataClient is a route data client that needs to be closed.
type DataClient interface {
	routing.DataClient
	Close()
}

type remoteFile struct {
	once       sync.Once
	preloaded  bool
	remotePath string
	localPath  string
	fileClient *WatchClient
	threshold  int
	verbose    bool
	http       *http.Client
	etag       string
}

type RemoteWatchOptions struct {
	// URL of the route file
	RemoteFile string

	// Verbose mode for the data client
	Verbose bool

	// Amount of route changes that will trigger logs after route updates
	Threshold int

	// Download the routes during the initialization, and make RemoteWatch fail if it's not possible
	FailOnStartup bool

	// HTTPTimeout is the timeout of a single download of the route file.
	HTTPTimeout time.Duration
}

// RemoteWatch creates a route configuration client with remote file watching. When RemoteFile is not an http
// or https URL, it returns a local WatchClient. The remote file is downloaded to a temporary file on every
// poll, using ETags to skip the unchanged content.
func RemoteWatch(o *RemoteWatchOptions) (DataClient, error) {
	if !isFileRemote(o.RemoteFile) {
		return Watch(o.RemoteFile), nil
	}

	tempFile, err := os.CreateTemp("", "routes")
	if err != nil {
		return nil, err
	}

	if err := tempFile.Close(); err != nil {
		return nil, err
	}

	c := &remoteFile{
		remotePath: o.RemoteFile,
		localPath:  tempFile.Name(),
		threshold:  o.Threshold,
		verbose:    o.Verbose,
		http:       &http.Client{Timeout: o.HTTPTimeout},
	}

	if o.FailOnStartup {
		if err := c.downloadRemoteFile(); err != nil {
			c.http.CloseIdleConnections()
			os.Remove(c.localPath)
			return nil, err
		}

		c.preloaded = true
	}

	c.fileClient = Watch(c.localPath)
	return c, nil
}

// LoadAll returns the parsed route definitions found in the file.
func (c *remoteFile) LoadAll() ([]*routing.Def, error) {
	if c.preloaded {
		c.preloaded = false
	} else {
		// a reset needs the complete content
		c.etag = ""
		if err := c.downloadRemoteFile(); err != nil {
			log.Errorf("LoadAll from remote %s failed: %v", c.remotePath, err)
			return nil, err
		}
	}

	if c.verbose {
		log.Infof("New routes file %s was downloaded", c.remotePath)
	}

	return c.fileClient.LoadAll()
}

// LoadUpdate returns differential updates when the remote file has changed.
func (c *remoteFile) LoadUpdate() ([]*routing.Def, []string, error) {
	if err := c.downloadRemoteFile(); err != nil {
		log.Errorf("LoadUpdate from remote %s failed, trying to LoadAll: %v", c.remotePath, err)
		return nil, nil, err
	}

	upsert, deleted, err := c.fileClient.LoadUpdate()
	if err != nil {
		log.Errorf("Failed to load the update of %s, serving the last valid routes: %v", c.remotePath, err)
		return nil, nil, err
	}

	if c.verbose {
		log.Infof("New routes were loaded. New: %d; deleted: %d", len(upsert), len(deleted))
		if c.threshold > 0 && len(upsert)+len(deleted) > c.threshold {
			log.Warnf("Significant amount of routes was updated. New: %d; deleted: %d", len(upsert), len(deleted))
		}
	}

	return upsert, deleted, nil
}

// Close stops polling, and removes the local copy of the file.
func (c *remoteFile) Close() {
	c.once.Do(func() {
		c.http.CloseIdleConnections()
		c.fileClient.Close()
		os.Remove(c.localPath)
	})
}

func isFileRemote(remotePath string) bool {
	return strings.HasPrefix(remotePath, "http://") || strings.HasPrefix(remotePath, "https://")
}

func (c *remoteFile) downloadRemoteFile() error {
	body, err := c.getRemoteData()
	if errors.Is(err, errContentNotChanged) {
		return nil
	}

	if err != nil {
		return err
	}

	defer body.Close()

	out, err := os.OpenFile(c.localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

func (c *remoteFile) getRemoteData() (io.ReadCloser, error) {
	req, err := http.NewRequest("GET", c.remotePath, nil)
	if err != nil {
		return nil, err
	}

	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}

	rsp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if c.etag != "" && rsp.StatusCode == http.StatusNotModified {
		rsp.Body.Close()
		return nil, errContentNotChanged
	}

	if rsp.StatusCode != http.StatusOK {
		rsp.Body.Close()
		return nil, fmt.Errorf("failed to download remote file %s, status code: %d", c.remotePath, rsp.StatusCode)
	}

	c.etag = rsp.Header.Get("ETag")
	return rsp.Body, nil
}
