package config

import "fmt"

// pemSource is one certificate input that may come from a file or from inline content.
type pemSource struct {
	name    string
	file    string
	content string
}

func (p pemSource) present() bool { return p.file != "" || p.content != "" }

func (p pemSource) ambiguous() bool { return p.file != "" && p.content != "" }

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	if err := validateTLSMode(tls); err != nil {
		return err
	}
	return validateTLSVersion(tls)
}

// validateTLSMode validates the TLS mode and the certificates it needs
func validateTLSMode(tls TLSConfig) error {
	cert := pemSource{"cert", tls.CertFile, tls.CertContent}
	key := pemSource{"key", tls.KeyFile, tls.KeyContent}
	ca := pemSource{"ca", tls.CAFile, tls.CAContent}

	switch tls.Mode {
	case "disabled", "":
		return nil
	case "server":
		return requireSources(tls.Mode, cert, key)
	case "mutual":
		if err := requireSources(tls.Mode, cert, key, ca); err != nil {
			return err
		}
		return validateClientAuthPolicy(tls.ClientAuthPolicy)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}
}

// requireSources checks that every source is given exactly once
func requireSources(mode string, sources ...pemSource) error {
	for _, src := range sources {
		if !src.present() {
			return fmt.Errorf("TLS %s is required for %s mode (provide %sFile or %sContent)", src.name, mode, src.name, src.name)
		}
		if src.ambiguous() {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", src.name, src.name)
		}
	}
	return nil
}

// validateClientAuthPolicy validates the client authentication policy
func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(tls TLSConfig) error {
	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}
