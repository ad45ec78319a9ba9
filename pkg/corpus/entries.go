package corpus

// EmailEntries returns the built-in customer-communication corpus.
func EmailEntries() []Entry {
	return []Entry{
		{Key: "system outage", Snippets: []string{
			"RCA-2024-001: Database connection pool exhaustion caused by memory leak in connection driver.",
			"Prevention: Implemented connection pooling monitoring and automated restart procedures.",
			"SLA Impact: 99.9% uptime target maintained through quick response protocols.",
		}},
		{Key: "production environment", Snippets: []string{
			"Production deployment checklist updated after incident review.",
			"Monitoring thresholds adjusted for early detection of similar issues.",
			"Backup systems verified and tested monthly.",
		}},
		{Key: "database outage", Snippets: []string{
			"Database backup procedures verified and tested weekly.",
			"Payment processing failover systems activated during outages.",
			"Customer communication templates for service disruptions available.",
		}},
		{Key: "customer communication", Snippets: []string{
			"Professional response templates for customer inquiries available.",
			"Standard escalation procedures for urgent customer issues documented.",
			"Customer satisfaction surveys show 95% positive response to incident communications.",
		}},
	}
}

// MeetingEntries returns the built-in scheduling corpus.
func MeetingEntries() []Entry {
	return []Entry{
		{Key: "meeting scheduling", Snippets: []string{
			"Standard meeting duration: 30 minutes for planning sessions, 60 minutes for reviews.",
			"Conference room availability: Check Outlook calendar for room bookings.",
			"Meeting best practices: Send agenda 24 hours in advance.",
		}},
		{Key: "q1 planning", Snippets: []string{
			"Q1 planning typically includes budget review, goal setting, and resource allocation.",
			"Previous Q1 planning meetings included: Sales targets, Marketing campaigns, Engineering roadmap.",
			"Recommended attendees for Q1 planning: Department heads, Project managers, Finance team.",
		}},
		{Key: "team meetings", Snippets: []string{
			"Weekly standup meetings: Mondays 9 AM, Conference Room A.",
			"Monthly all-hands meetings: First Friday of each month, Main auditorium.",
			"Quarterly reviews: End of each quarter, includes performance metrics and planning.",
		}},
	}
}
