// Package client is a Go client for the docchat HTTP API.
//
//	c := client.New("http://localhost:8080", client.WithAPIKey(os.Getenv("DOCCHAT_API_KEY")))
//	files, _ := c.Upload(ctx, "report.pdf")
//	reply, _ := c.Chat(ctx, []client.Message{{Role: "user", Content: "What is the revenue?"}})
//
// Non-2xx responses are returned as *APIError; use errors.Is with the
// sentinel errors to branch on the error kind.
package client
