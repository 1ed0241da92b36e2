// Package domain models jurisdiction-specific traffic-crash data.
//
// # Data Sources
//
// Each jurisdiction publishes its crash records as a set of related tables
// sharing a composite key:
//
//	FARS:     the NHTSA Fatality Analysis Reporting System CrashAPI
//	          (https://crashviewer.nhtsa.dot.gov/CrashAPI), one JSON extract
//	          per dataset per year. Key: CASEYEAR + STATE + ST_CASE.
//	DC:       District Department of Transportation open-data CSV exports
//	          (Crashes in DC plus the Crash Details person table).
//	          Key: CRIMEID.
//	Maryland: Maryland State Police statewide crash CSV extracts
//	          (crash, person, vehicle). Key: REPORT_NO.
//
// # Coding Conventions
//
// Injury severity and person role are coded differently per jurisdiction:
//
//	FARS:     INJ_SEV integer codes 0-6 (4 = fatal), PER_TYP integer codes.
//	DC:       per-person Y/N flags (FATAL, MAJORINJURY, MINORINJURY) and
//	          free-text PERSONTYPE values, sometimes truncated at ten
//	          characters by the export ("Occupant o", "Electric M").
//	Maryland: INJ_SEVER_CODE integer codes 1-5 (5 = fatal) and single-letter
//	          PERSON_TYPE codes (D, O, P).
//
// The closed sets in this package (CrashCategory, InjuryCategory, PersonRole,
// InjuryClass) are the common vocabulary those codes are mapped onto. Harm
// classification picks the single most severely injured person, breaking ties
// by vulnerability rank: pedestrian > bicyclist > occupant > driver > other.
//
// # Sentinels
//
// Source values are parsed best-effort and never raise: a value that fails
// numeric coercion is retained as text, an unparseable date yields the
// "unknown" age sentinel. Known placeholders:
//
//	"1/1/1900" / 1900-01-01   date not recorded
//	AGE >= 900                FARS code for unknown or unreported age
//	"nan"                     stringified missing value in CSV extracts
//
// # Spatial Bucketing
//
// Web output is sharded into a fixed lat/long grid. Bucket keys use
// floor-toward-negative-infinity division so western-hemisphere longitudes
// land in the correct cell: lat -76.81 at interval 2 buckets to -78, not -76.
// See [BucketKey].
package domain
