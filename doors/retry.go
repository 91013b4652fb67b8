package doors

import (
	"errors"

	"github.com/cenkalti/backoff"
)

// CallWithRetry is Call with a retry policy for interrupted calls.
//
// Only ErrInterrupted failures are retried; every other failure, and in
// particular ErrTargetDied, is permanent for this handle and returned
// immediately. The policy decides how long and how often to retry:
//
//	res, err := client.CallWithRetry(backoff.NewExponentialBackOff(), payload)
func (c *Client) CallWithRetry(policy backoff.BackOff, data []byte, descs ...Descriptor) (*Result, error) {
	var res *Result
	err := retryInterrupted(policy, func() error {
		r, err := c.Call(data, descs...)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// retryInterrupted runs f under policy, retrying only while it fails with
// ErrInterrupted.
func retryInterrupted(policy backoff.BackOff, f func() error) error {
	return backoff.Retry(func() error {
		err := f()
		if err == nil || errors.Is(err, ErrInterrupted) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
