package gmail

import (
	"context"
	"testing"
)

func TestService_RequiresCredentials(t *testing.T) {
	c := NewClient("", "", "")

	if _, err := c.service(context.Background()); err == nil {
		t.Fatal("expected error without credentials, got nil")
	}
}

func TestService_BoundsPerCallTimeout(t *testing.T) {
	c := NewClient("client-id", "client-secret", "refresh-token")

	if _, err := c.service(context.Background()); err != nil {
		t.Fatalf("expected service to build, got %v", err)
	}

	if c.httpClient == nil {
		t.Fatal("expected http client to be configured")
	}
	if c.httpClient.Timeout != requestTimeout {
		t.Errorf("expected per-call timeout %s, got %s", requestTimeout, c.httpClient.Timeout)
	}
}
