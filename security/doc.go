// Package security holds the TLS settings an API client uses to reach its host.
//
//	tlsCfg := security.TLSConfig{
//	    CAFile:   "/etc/apikit/ca.pem",
//	    CertFile: "/etc/apikit/client.pem",
//	    KeyFile:  "/etc/apikit/client-key.pem",
//	}
//
//	transport := http.DefaultTransport.(*http.Transport).Clone()
//	if err := tlsCfg.Apply(transport); err != nil {
//	    return err
//	}
package security
