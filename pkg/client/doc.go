// Package client is the Go SDK for the exit-node risk checker HTTP API.
//
//	c, err := client.New("http://localhost:5000")
//	res, err := c.Check(ctx, "185.220.101.1")
//	if res.Found() {
//	    fmt.Println(res.RiskScore, res.RiskLevel)
//	}
package client
