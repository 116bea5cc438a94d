package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// NewFirestore opens a Firestore client for project. With an empty
// credentialsFile the application default credentials are used.
func NewFirestore(ctx context.Context, project, credentialsFile string) (*firestore.Client, error) {
	if project == "" {
		return nil, errors.New("firestore project is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}
	return client, nil
}
