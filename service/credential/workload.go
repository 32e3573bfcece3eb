package credential

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const ServiceBusScope = "https://servicebus.azure.net/.default"

// WorkloadIdentityConfig mirrors the variables injected by the Kubernetes
// workload identity webhook.
type WorkloadIdentityConfig struct {
	ClientID      string
	TenantID      string
	AuthorityHost string
	TokenFile     string
}

// Enabled reports whether the workload identity environment is present.
func (obj WorkloadIdentityConfig) Enabled() bool {
	return obj.ClientID != "" && obj.TenantID != "" && obj.TokenFile != ""
}

// TokenCredentialSource fetches tokens for a fixed scope from any Azure
// credential.
type TokenCredentialSource struct {
	Credential azcore.TokenCredential
	Scope      string
}

func (obj TokenCredentialSource) FetchToken(ctx context.Context) (Token, error) {
	at, err := obj.Credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{obj.Scope}})
	if err != nil {
		return Token{}, err
	}
	return Token{Value: at.Token, ExpiresAt: at.ExpiresOn}, nil
}

// WorkloadIdentity returns a source exchanging the federated token file for
// Service Bus access tokens.
func WorkloadIdentity(cfg WorkloadIdentityConfig) (TokenSource, error) {
	opts := &azidentity.WorkloadIdentityCredentialOptions{
		ClientID:      cfg.ClientID,
		TenantID:      cfg.TenantID,
		TokenFilePath: cfg.TokenFile,
	}
	if cfg.AuthorityHost != "" {
		opts.ClientOptions = azcore.ClientOptions{
			Cloud: cloud.Configuration{ActiveDirectoryAuthorityHost: cfg.AuthorityHost},
		}
	}

	cred, err := azidentity.NewWorkloadIdentityCredential(opts)
	if err != nil {
		return nil, fmt.Errorf("workload identity credential: %w", err)
	}
	return TokenCredentialSource{Credential: cred, Scope: ServiceBusScope}, nil
}
