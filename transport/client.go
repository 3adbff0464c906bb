package transport

import (
	"bytes"
	"io"
	"net/http"

	"golang.org/x/xerrors"
)

// protocolHeader advertises protocol v2 support, as required by every
// request this client makes.
const protocolHeader = "git-protocol"

// ErrRequestFailed is returned when the remote responds with a non-2xx
// status code.
var ErrRequestFailed = xerrors.New("request failed")

// Client speaks the smart HTTP v2 protocol against a single
// git-upload-pack endpoint.
type Client struct {
	// URL is the repository's base URL, e.g. "https://example.com/repo.git".
	URL string
	// HTTPClient is used to issue requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// NewClient returns a Client for the repository at url.
func NewClient(url string) *Client {
	return &Client{URL: url, HTTPClient: http.DefaultClient}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// post sends body to <url>/git-upload-pack with the protocol-v2 header
// and returns the raw response body.
func (c *Client) post(body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, c.URL+"/git-upload-pack", bytes.NewReader(body))
	if err != nil {
		return nil, xerrors.Errorf("could not build request: %w", err)
	}
	req.Header.Set(protocolHeader, "version=2")
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, xerrors.Errorf("could not reach %s: %w", c.URL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // nothing actionable to do with a close error here

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerrors.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, xerrors.Errorf("%s returned %d: %w", c.URL, resp.StatusCode, ErrRequestFailed)
	}
	return data, nil
}

// LsRefs asks the remote for its refs and returns a name to hex-id
// mapping. HEAD is always present at minimum.
func (c *Client) LsRefs() (map[string]string, error) {
	var body bytes.Buffer
	body.Write(EncodeLine([]byte("command=ls-refs\n")))
	body.Write(EncodeFlush())

	resp, err := c.post(body.Bytes())
	if err != nil {
		return nil, err
	}

	lines, err := ReadLines(bytes.NewReader(resp))
	if err != nil {
		return nil, xerrors.Errorf("could not parse ls-refs response: %w", err)
	}

	refs := make(map[string]string, len(lines))
	for _, line := range lines {
		s := string(bytes.TrimRight(line, "\n"))
		if len(s) < 41 || s[40] != ' ' {
			return nil, xerrors.Errorf("malformed ls-refs line %q: %w", s, ErrBadPktLine)
		}
		refs[s[41:]] = s[:40]
	}
	return refs, nil
}

// Fetch requests the objects behind every id in wants and returns the
// raw pack bytes, stripped of pkt-line framing and sideband tagging.
func (c *Client) Fetch(wants []string) ([]byte, error) {
	var body bytes.Buffer
	body.Write(EncodeLine([]byte("command=fetch\n")))
	body.Write(EncodeDelim())
	body.Write(EncodeLine([]byte("no-progress\n")))
	for _, id := range wants {
		body.Write(EncodeLine([]byte("want " + id + "\n")))
	}
	body.Write(EncodeLine([]byte("done\n")))
	body.Write(EncodeFlush())

	resp, err := c.post(body.Bytes())
	if err != nil {
		return nil, err
	}

	lines, err := ReadLines(bytes.NewReader(resp))
	if err != nil {
		return nil, xerrors.Errorf("could not parse fetch response: %w", err)
	}

	start := sectionStart(lines, "packfile")
	if start < 0 {
		return nil, xerrors.Errorf("no packfile section in fetch response: %w", ErrBadPktLine)
	}
	// the section's first line is the "packfile" marker itself, not
	// sideband-tagged
	return DemuxPack(lines[start+1:])
}

// sectionStart returns the index of the marker line within lines, or -1
// if it isn't found.
func sectionStart(lines [][]byte, marker string) int {
	for i, line := range lines {
		if string(bytes.TrimRight(line, "\n")) == marker {
			return i
		}
	}
	return -1
}
