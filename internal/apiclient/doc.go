// Package apiclient implements the resilient HTTP client used to talk to the
// presentation generation backend.
//
// Every call runs under one deadline that bounds the whole operation, retries
// transient failures with exponential backoff, and resolves to an Outcome. A call
// never returns an error or panics past its boundary: transport failures, non-2xx
// responses and decoding problems all become a failed Outcome carrying a status
// code (408 when the deadline ended the call, 500 otherwise).
//
// Example usage:
//
//	client, err := apiclient.New(apiclient.DefaultProfile("http://localhost:8000/api/v1/ppt"))
//	if err != nil {
//	    return err
//	}
//
//	out := apiclient.Get[[]Presentation](ctx, client, "/user_presentations")
//	if !out.Success {
//	    logger.Warn("listing failed", slog.String("error", out.Error), slog.Int("status", out.StatusCode))
//	}
//
//	// One slow call with a larger budget, without touching the client's defaults.
//	out = apiclient.Post[Outline](ctx, client, "/outlines/generate", req,
//	    apiclient.WithTimeout(15*time.Minute), apiclient.WithMaxRetries(1))
package apiclient
