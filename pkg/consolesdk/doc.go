/*
Package consolesdk is the HTTP client for the AtlasBoard backend: credential
exchange, typed auth errors, and the authenticating transport the rest of
the console makes its API calls through.

# Client vs Transport

Client performs the unauthenticated credential exchanges:

	client := consolesdk.NewClient("https://auth.example.com", "https://api.example.com")

	tok, err := client.PasswordLogin(ctx, "ops@example.com", "secret")

Transport wraps an http.RoundTripper and handles bearer attachment and
expiry transparently. Wire it with a token store and the client itself as
the refresher, then hang it on the client's API field:

	tr := consolesdk.NewTransport(store, client)
	client.API = &http.Client{Transport: tr, Timeout: 15 * time.Second}

	customers, err := client.ListCustomers(ctx)

# The retry-once policy

On a 401 the Transport performs at most one refresh-and-retry cycle per
request:

  - no refresh token stored: the call fails with a session-expired AuthError
  - refresh succeeds: the token store is overwritten with the new pair and
    the original request is re-issued exactly once; that response is
    returned verbatim, a second 401 included
  - refresh fails: the token store is cleared and the call fails with a
    session-expired AuthError

A failed refresh therefore always leaves a clean logged-out token state,
and callers never observe more than one transparent retry.

# Error Handling

Exchange failures are *AuthError values classified by ErrorKind. Helpers
such as IsInvalidCredentials and IsSessionExpired unwrap through the
*url.Error that http.Client puts around transport failures:

	if err := mgr.Login(ctx, email, password); consolesdk.IsInvalidCredentials(err) {
		// show the message inline, let the user correct it
	}
*/
package consolesdk
