package servicetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasquest/internal/models"
	"canvasquest/internal/service"
)

func TestInTxRollbackKeepsConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := mem.InTx(ctx, func(st service.Stores) error {
			if _, err := st.Users.Create(ctx, models.User{DisplayName: "doomed"}); err != nil {
				return err
			}
			close(entered)
			<-release
			return errors.New("abort")
		})
		assert.Error(t, err)
	}()

	<-entered
	go func() {
		defer wg.Done()
		err := mem.InTx(ctx, func(st service.Stores) error {
			_, err := st.Users.Create(ctx, models.User{DisplayName: "vega"})
			return err
		})
		assert.NoError(t, err)
	}()

	// give the second transaction a chance to run if it is not blocked
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	_, err := mem.Stores().Users.FindByDisplayName(ctx, "vega")
	require.NoError(t, err)
	_, err = mem.Stores().Users.FindByDisplayName(ctx, "doomed")
	assert.Error(t, err)

	users, _, _ := mem.Counts()
	assert.Equal(t, 1, users)
}
