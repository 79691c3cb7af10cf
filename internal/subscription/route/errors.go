// SPDX-License-Identifier: MIT

package route

import "errors"

var errNotNumeric = errors.New("route: version component is not numeric")
