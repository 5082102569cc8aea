package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	policy := NewRetryPolicy(5, time.Millisecond, 2*time.Millisecond)

	calls := 0
	err := policy.Execute(context.Background(), nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyHonoursRetryable(t *testing.T) {
	policy := NewRetryPolicy(5, time.Millisecond, time.Millisecond)
	permanent := errors.New("permanent")

	calls := 0
	err := policy.Execute(context.Background(), func(err error) bool { return !errors.Is(err, permanent) }, func(context.Context) error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyCalculateDelay(t *testing.T) {
	policy := NewRetryPolicy(4, 100*time.Millisecond, 300*time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, policy.CalculateDelay(0))
	assert.Equal(t, 200*time.Millisecond, policy.CalculateDelay(1))
	assert.Equal(t, 300*time.Millisecond, policy.CalculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, policy.CalculateDelay(10))
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNormalizeArch(t *testing.T) {
	assert.Equal(t, "X64", NormalizeArch("x86_64"))
	assert.Equal(t, "Arm64", NormalizeArch("aarch64"))
	assert.Equal(t, "X86", NormalizeArch("i686"))
	assert.Equal(t, "riscv64", NormalizeArch("riscv64"))
}

func TestCapacityHelpers(t *testing.T) {
	assert.Equal(t, 16, BytesToGB(16*1024*1024*1024+512))
	assert.Equal(t, "512GB", FormatCapacity(512*1024*1024*1024))
	assert.Equal(t, "Xeon (4 cores, 8 threads)", CPUDescription(" Xeon ", 4, 8))
	assert.Equal(t, "Xeon", CPUDescription("Xeon", 0, 0))
}

func TestCleanValue(t *testing.T) {
	assert.Equal(t, "", CleanValue(" To Be Filled By O.E.M. "))
	assert.Equal(t, "ABC123", CleanValue("ABC123\n"))
}

func TestFormatMAC(t *testing.T) {
	assert.Equal(t, "001A2B3C4D5E", FormatMAC("00:1a:2b:3c:4d:5e"))
}

func TestFirstIPv4(t *testing.T) {
	ip, cidr, ok := FirstIPv4([]string{"fe80::1/64", "10.1.2.3/24"})
	require.True(t, ok)
	assert.Equal(t, "10.1.2.3", ip)
	assert.Equal(t, "10.1.2.3/24", cidr)

	_, _, ok = FirstIPv4([]string{"fe80::1/64"})
	assert.False(t, ok)
}

func TestNameServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nnameserver 10.0.0.53\nnameserver ::1\nnameserver 10.0.0.54\nsearch corp.local\n"), 0o644))

	servers, err := NameServers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.53", "10.0.0.54"}, servers)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://agent:xxxxx@db:5432/inventory", MaskDSN("postgres://agent:hunter2@db:5432/inventory"))
	assert.Equal(t, "host=db user=agent password=**** dbname=inventory", MaskDSN("host=db user=agent password=hunter2 dbname=inventory"))
	assert.Equal(t, "", MaskDSN(""))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****cdef", MaskSecret("abcdef"))
	assert.Equal(t, "****", MaskSecret("abc"))
}

func TestTimeZone(t *testing.T) {
	tz, err := NewTimeZone("UTC")
	require.NoError(t, err)

	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01 08:00:00 UTC", tz.Format(ts))

	fallback, err := NewTimeZone("Mars/Olympus")
	require.Error(t, err)
	assert.NotNil(t, fallback)
}

type sample struct {
	Name string `yaml:"name" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sample{Name: "x"}))

	err := ValidateStruct(sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample.name: required")
}
