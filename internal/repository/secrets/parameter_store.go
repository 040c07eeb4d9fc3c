package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

// ParameterAPI is the subset of the SSM client the store calls.
type ParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStore reads signing keys kept as SecureString parameters.
type ParameterStore struct {
	client ParameterAPI
}

// NewParameterStore creates a store backed by SSM.
func NewParameterStore(awsConfig aws.Config) *ParameterStore {
	return &ParameterStore{client: ssm.NewFromConfig(awsConfig)}
}

// NewParameterStoreWithClient creates a store over an existing client.
func NewParameterStoreWithClient(client ParameterAPI) *ParameterStore {
	return &ParameterStore{client: client}
}

// GetSecret returns the decrypted value of the named parameter.
func (s *ParameterStore) GetSecret(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.ConfigNotSetError("private_key_parameter")
	}

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	log.WithField("parameter", name).Debug("Loaded secret from parameter store")
	return strings.TrimSpace(*out.Parameter.Value), nil
}
