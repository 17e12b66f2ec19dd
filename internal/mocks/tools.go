//go:build tools

package mocks

import (
	_ "go.uber.org/mock/mockgen"
)
