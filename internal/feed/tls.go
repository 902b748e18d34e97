package feed

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/muurk/castscan/internal/logging"
)

// ErrIncompleteTLS is returned when only one of the certificate and key is given
var ErrIncompleteTLS = errors.New("both certificate and key must be provided together, or neither")

// NewTLSConfig loads a certificate and key for serving the feed over HTTPS.
// Both paths empty means plain HTTP and returns a nil config.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	if certPath == "" && keyPath == "" {
		return nil, nil
	}
	if certPath == "" || keyPath == "" {
		return nil, ErrIncompleteTLS
	}

	for _, path := range []string{certPath, keyPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
