package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

func printEnvVersion(output io.Writer, envVersion supply.EnvVersion) {
	fmt.Fprintf(output, "REQUIRE_OTP=%t TRANSACTION_GROUPING=%t\n", envVersion.Features.RequireOTP, envVersion.Features.TransactionGrouping)
	writer := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "CATEGORY\tNAME\tLIMIT\tPERIOD\tIDENTIFIERS")
	for _, policy := range supply.SortPolicies(envVersion.Policies) {
		labels := ""
		for index, identifier := range policy.Identifiers {
			if index > 0 {
				labels += ", "
			}
			labels += identifier.Label
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%s\n", policy.Category, policy.Name, policy.Quantity.Limit, time.Duration(policy.Quantity.Period)*time.Second, labels)
	}
	_ = writer.Flush()
}

func printQuota(output io.Writer, quota supply.Quota, policies []supply.Policy) {
	writer := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ITEM\tREMAINING\tLAST REDEEMED")
	for _, item := range quota.RemainingQuota {
		last := "-"
		if item.TransactionTime != nil {
			last = item.TransactionTime.Local().Format(time.RFC1123)
		}
		fmt.Fprintf(writer, "%s\t%d\t%s\n", supply.ResolveCategoryDisplayName(item.Category, policies), item.Quantity, last)
	}
	_ = writer.Flush()
}

func printQuotaSummary(output io.Writer, summary supply.QuotaSummary) {
	fmt.Fprintf(output, "Remaining: %d\n", summary.RemainingQuota)
	for _, entry := range summary.History {
		fmt.Fprintf(output, "  %s  %d\n", entry.TransactionTime.Local().Format(time.RFC1123), entry.Quantity)
	}
}

func printRedemption(output io.Writer, result supply.PostTransactionResult, policies []supply.Policy) {
	for _, group := range result.Transactions {
		fmt.Fprintf(output, "%s\n", group.Timestamp.Local().Format(time.RFC1123))
		for _, transaction := range group.Transaction {
			fmt.Fprintf(output, "  %s x%d", supply.ResolveCategoryDisplayName(transaction.Category, policies), transaction.Quantity)
			if identifiers := supply.FormatIdentifierInputs(transaction.IdentifierInputs); identifiers != "" {
				fmt.Fprintf(output, " (%s)", identifiers)
			}
			fmt.Fprintln(output)
		}
	}
}
