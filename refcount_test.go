// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package concert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	concert "github.com/durgeshm/asyncore"
)

func TestRefCount(t *testing.T) {
	t.Run("create and release", func(t *testing.T) {
		var r concert.RefCount
		assert.True(t, r.Release())
	})

	t.Run("release with action", func(t *testing.T) {
		var released bool
		r := concert.RefCount{
			Action: func() { released = true },
		}

		assert.True(t, r.Release())
		assert.True(t, released)
	})

	t.Run("retain defers the action until every reference is released", func(t *testing.T) {
		var released bool
		r := concert.RefCount{
			Action: func() { released = true },
		}

		r.Retain()
		assert.False(t, r.Release())
		assert.False(t, released)
		assert.True(t, r.Release())
		assert.True(t, released)
	})

	t.Run("releasing too often panics", func(t *testing.T) {
		assert.Panics(t, func() {
			var r concert.RefCount
			r.Release()
			r.Release()
		})
	})

	t.Run("retain on released refcount panics", func(t *testing.T) {
		assert.Panics(t, func() {
			var r concert.RefCount
			r.Release()
			r.Retain()
		})
	})
}
