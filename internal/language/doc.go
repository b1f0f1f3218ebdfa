// Package language normalizes caption language identifiers.
//
// Vendor metadata reports languages as BCP-47 tags ("pt-BR"), ISO 639-2 codes
// ("spa"), or display words ("English"). Everything in the caption pipeline is
// keyed by lowercase ISO 639-1 codes, so all conversions funnel through here.
package language
