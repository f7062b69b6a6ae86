package testutil

import "fdp-go/internal/fdp"

// AddressHex returns the content address of data as the hex key vaults use.
func AddressHex(data []byte) string {
	return fdp.ContentAddress(data).String()
}
