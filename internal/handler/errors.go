// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import "errors"

// errNoHandlersAreCreated is returned by NewHandlers when the server config
// has no HTTP address. The server refuses to start without a listener.
var errNoHandlersAreCreated = errors.New("no handlers are created")
