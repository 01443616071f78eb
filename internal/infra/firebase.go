// README: Firebase Admin SDK initialisation for the Realtime Database client.
package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// FirebaseConfig selects the project and RTDB instance. When DatabaseURL is
// empty it is derived from the project id using the default RTDB host.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	DatabaseURL     string
}

// NewFirebaseDB creates an RTDB client. If CredentialsFile is non-empty it is
// used as the service-account JSON path; otherwise application-default
// credentials are used.
func NewFirebaseDB(ctx context.Context, cfg FirebaseConfig) (*db.Client, error) {
	url := cfg.DatabaseURL
	if url == "" {
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("firebase: project id or database url required")
		}
		url = fmt.Sprintf("https://%s-default-rtdb.firebaseio.com", cfg.ProjectID)
	}

	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID, DatabaseURL: url}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Database: %w", err)
	}
	return client, nil
}
