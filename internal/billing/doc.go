// Package billing manages customer tiers and the PayPal subscription
// lifecycle: create product, create plan, create subscription, activate.
//
// Activation never trusts the redirect. The service fetches the subscription
// from the provider and only upgrades the tier when the provider reports it
// ACTIVE or APPROVED for the same customer.
package billing
