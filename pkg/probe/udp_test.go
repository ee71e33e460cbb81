// Copyright 2026 The Flow Manager Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package probe

import (
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gke-flowmanager/flowmanager/pkg/reflector"
)

func TestUDPConn_BurstRTT_AgainstLiveReflector(t *testing.T) {
	refl, err := reflector.Listen(log.NewNopLogger(), "127.0.0.1:0")
	require.NoError(t, err)
	defer refl.Close()
	go func() { _ = refl.Run() }()

	c, err := dialUDP(refl.LocalAddr().String(), 500*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	meanMs, ok := c.burstRTT()
	require.True(t, ok)
	assert.GreaterOrEqual(t, meanMs, 0.0)
	assert.Less(t, meanMs, 500.0)
}

func TestUDPConn_BurstRTT_FailsWithoutReflector(t *testing.T) {
	c, err := dialUDP("127.0.0.1:1", 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.burstRTT()
	assert.False(t, ok)
}
