package googletools

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested when the operator authorizes opsflow.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveReadonlyScope,
	docs.DocumentsReadonlyScope,
	gmail.GmailReadonlyScope,
}

func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
		RedirectURL:  "http://localhost",
	}
}

type Services struct {
	Sheets *sheets.Service
	Drive  *drive.Service
	Docs   *docs.Service
	Gmail  *gmail.Service
}

// NewServices builds every Google API client on one authorized HTTP client.
// Extra options (an endpoint override in tests) are passed to each service.
func NewServices(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Services, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	docsService, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	gmailService, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Services{
		Sheets: sheetsService,
		Drive:  driveService,
		Docs:   docsService,
		Gmail:  gmailService,
	}, nil
}
