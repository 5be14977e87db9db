package knowledge

// DefaultCorpus returns the built-in company policy passages indexed at
// startup when no external corpus is configured.
func DefaultCorpus() []Passage {
	return []Passage{
		{ID: "leave-policy", Title: "Leave Policy", Content: "Employees are entitled to 20 annual leaves per year. Unused leaves cannot be carried over. Sick leave requires a medical certificate if taken for more than 2 consecutive days."},
		{ID: "maternity-leave", Title: "Maternity Leave", Content: "Female employees are entitled to 26 weeks of paid maternity leave. Additional unpaid leave can be requested up to 16 weeks."},
		{ID: "paternity-leave", Title: "Paternity Leave", Content: "Male employees can avail up to 2 weeks of paid paternity leave."},
		{ID: "salary-increments", Title: "Salary Increments", Content: "Annual salary increments are performance-based and reviewed every April. Employees with outstanding performance may receive additional bonuses."},
		{ID: "promotion-criteria", Title: "Promotion Criteria", Content: "Promotions are based on performance reviews, leadership potential, and business needs. Employees can apply for internal job postings after 1 year in their current role."},
		{ID: "remote-work-policy", Title: "Remote Work Policy", Content: "Employees can work remotely up to 3 days a week. Fully remote positions require management approval."},
		{ID: "overtime-policy", Title: "Overtime Policy", Content: "Employees working beyond 40 hours per week are eligible for overtime pay or compensatory time off, subject to approval."},
		{ID: "health-benefits", Title: "Health Benefits", Content: "Company provides full medical insurance to employees and dependents, covering hospitalization, consultation, and medications."},
		{ID: "retirement-plan", Title: "Retirement Plan", Content: "Employees are enrolled in a company-sponsored retirement plan with a 5% employer contribution match."},
		{ID: "password-reset", Title: "Password Reset", Content: "To reset your password, visit the IT portal and click 'Forgot Password'. If locked out, contact IT Support."},
		{ID: "vpn-issue", Title: "VPN Issue", Content: "Ensure your VPN software is updated. If issues persist, restart your computer and reconnect."},
		{ID: "email-access-issue", Title: "Email Access Issue", Content: "If you cannot access your email, reset your password via the email portal. If issues persist, check Outlook settings."},
		{ID: "software-installation", Title: "Software Installation", Content: "Submit a request through the IT Helpdesk for software installation. Approval from your manager may be required."},
		{ID: "printer-not-working", Title: "Printer Not Working", Content: "Ensure the printer is powered on and connected. If issues persist, reinstall the drivers or contact IT support."},
		{ID: "incident-reporting", Title: "Incident Reporting", Content: "Employees must report security breaches within 24 hours to the IT Security Team."},
		{ID: "firewall-rules", Title: "Firewall Rules", Content: "Strict firewall rules are enforced to block unauthorized access to company systems."},
	}
}
