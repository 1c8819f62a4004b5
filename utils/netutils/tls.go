/***
Copyright 2016 Cisco Systems Inc. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package netutils

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/netforge/fabricmap/core"
)

// GetTLSConfigFromCerts builds a server tls.Config from PEM files. The
// CA bundle is optional; when given, clients must present a certificate
// it signs.
func GetTLSConfigFromCerts(cert, key, cacert string) (*tls.Config, error) {
	tlsCert, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		return nil, core.Errorf("loading key pair %q, %q: %v", cert, key, err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		MinVersion:   tls.VersionTLS12,
	}

	if cacert != "" {
		caCert, err := os.ReadFile(cacert)
		if err != nil {
			return nil, core.Errorf("loading CA bundle %q: %v", cacert, err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, core.Errorf("no certificates found in %q", cacert)
		}
		cfg.ClientCAs = caCertPool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}
