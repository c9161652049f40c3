package camera

import "testing"

func TestReadRetry(t *testing.T) {
	var retry readRetry

	for i := 1; i < maxReadFailures; i++ {
		if retry.fail() {
			t.Fatalf("gave up after %d failures, want %d", i, maxReadFailures)
		}
	}
	if !retry.fail() {
		t.Fatalf("did not give up after %d consecutive failures", maxReadFailures)
	}
}

func TestReadRetryResetsOnSuccess(t *testing.T) {
	var retry readRetry

	for i := 0; i < maxReadFailures-1; i++ {
		retry.fail()
	}
	retry.ok()
	if retry.fail() {
		t.Fatal("gave up on the first failure after a successful read")
	}
}
