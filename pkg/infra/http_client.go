package infra

import (
	"time"

	"github.com/imroc/req/v3"
)

// ProvideHTTPClient builds the shared client for calls to the main server
// (identity introspection, on-duty roster). Retries transient failures with
// a fixed interval.
func ProvideHTTPClient() *req.Client {
	return req.C().
		SetTimeout(10 * time.Second).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(3 * time.Second)
}
