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

package reflector

import (
	"net"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestReflector_EchoesDatagramVerbatim(t *testing.T) {
	r, err := Listen(log.NewNopLogger(), "127.0.0.1:0")
	require.NoError(t, err)
	defer r.Close()

	go func() { _ = r.Run() }()

	conn, err := net.DialUDP("udp", nil, r.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer conn.Close()

	cases := [][]byte{
		[]byte("hello-reflector"),
		{0x00, 0x01, 0x02, 0xff},
		make([]byte, 200),
	}
	for _, want := range cases {
		require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))
		_, err := conn.Write(want)
		require.NoError(t, err)

		got := make([]byte, MaxDatagramSize)
		n, err := conn.Read(got)
		require.NoError(t, err)
		require.Equal(t, want, got[:n])
	}
}

func TestReflector_ClosesCleanlyOnCloseCall(t *testing.T) {
	r, err := Listen(log.NewNopLogger(), "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	require.NoError(t, r.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
