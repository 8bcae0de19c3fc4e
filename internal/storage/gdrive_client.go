package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ErrNoToken is returned when Drive has not been authorized yet
var ErrNoToken = errors.New("no Google Drive token, run the drive-auth command first")

// DriveClient uploads artifacts to Google Drive
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
	now        func() time.Time
}

// NewDriveClient creates a Google Drive client from a cached token. It
// never prompts; tokens are created with Authorize.
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveClient, error) {
	config, err := loadOAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrNoToken, err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(context.Background(), tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
		now:        time.Now,
	}

	if err := dc.ensureFolder(ctx); err != nil {
		return nil, err
	}

	return dc, nil
}

func loadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return config, nil
}

// Authorize runs the interactive OAuth flow: it prints the consent URL to
// out, reads the authorization code from in and caches the token
func Authorize(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) error {
	config, err := loadOAuthConfig(credentialsFile)
	if err != nil {
		return err
	}
	tok, err := getTokenFromWeb(ctx, config, in, out)
	if err != nil {
		return err
	}
	return saveToken(tokenFile, tok)
}

// getTokenFromWeb requests a token from the web
func getTokenFromWeb(ctx context.Context, config *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser:\n%v\n", authURL)
	fmt.Fprint(out, "Enter authorization code: ")

	var authCode string
	if _, err := fmt.Fscan(in, &authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken saves a token to a file path
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// ensureFolder finds or creates the root folder
func (dc *DriveClient) ensureFolder(ctx context.Context) error {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		escapeQuery(dc.folderName))

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %w", err)
	}

	if len(r.Files) > 0 {
		dc.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     dc.folderName,
		MimeType: "application/vnd.google-apps.folder",
	}

	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %w", err)
	}

	dc.folderID = file.Id
	return nil
}

// UploadFiles uploads paths into the dated folder and returns the
// shareable link of the first one
func (dc *DriveClient) UploadFiles(ctx context.Context, paths []string) (string, error) {
	folderID, err := dc.ensureDateFolder(ctx, dc.now())
	if err != nil {
		return "", err
	}

	var firstURL string
	for _, path := range paths {
		id, err := dc.uploadFile(ctx, folderID, path)
		if err != nil {
			return "", err
		}
		if firstURL == "" {
			firstURL = fmt.Sprintf("https://drive.google.com/file/d/%s/view", id)
		}
	}
	return firstURL, nil
}

func (dc *DriveClient) uploadFile(ctx context.Context, folderID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	created, err := dc.service.Files.Create(&drive.File{
		Name:    filepath.Base(path),
		Parents: []string{folderID},
	}).Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filepath.Base(path), err)
	}
	return created.Id, nil
}

// ensureDateFolder creates nested year/month/day folders
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	yearID, err := dc.findOrCreateFolder(ctx, fmt.Sprintf("%d", t.Year()), dc.folderID)
	if err != nil {
		return "", err
	}

	monthID, err := dc.findOrCreateFolder(ctx, fmt.Sprintf("%02d", t.Month()), yearID)
	if err != nil {
		return "", err
	}

	return dc.findOrCreateFolder(ctx, fmt.Sprintf("%02d", t.Day()), monthID)
}

// findOrCreateFolder finds or creates a folder with the given parent
func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false",
		escapeQuery(name), escapeQuery(parentID))

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", err
	}

	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{parentID},
	}

	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}

	return file.Id, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
