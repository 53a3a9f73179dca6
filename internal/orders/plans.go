// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package orders

import "strings"

// Plan is a fixed-price service package. Price is the display form in
// pounds ("1,499"); checkout charges exactly this amount.
type Plan struct {
	Name    string
	Price   string
	Summary string
}

// Plans is the package catalogue shown next to the contact form.
var Plans = []Plan{
	{Name: "Starter", Price: "499", Summary: "Remote helpdesk for up to five users with a monthly health check."},
	{Name: "Business", Price: "1,499", Summary: "Managed devices, backups and security monitoring for growing teams."},
	{Name: "Enterprise", Price: "4,999", Summary: "Dedicated engineer, on-site visits and a quarterly infrastructure review."},
}

// FindPlan looks a plan up by name, ignoring case and surrounding space.
func FindPlan(plans []Plan, name string) (Plan, bool) {
	name = strings.TrimSpace(name)
	for _, p := range plans {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Plan{}, false
}
