// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package orders

import "errors"

var (
	errInvalidPrice = errors.New("price must be a positive amount such as 1,499 or 49.50")
	errNoRedirect   = errors.New("checkout session has no redirect URL")
)
