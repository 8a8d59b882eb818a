package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/infrastructure/auth"
)

var (
	baseURL      string
	timeout      time.Duration
	bearerToken  string
	devPrincipal string
	devRole      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lendledger-cli",
		Short: "LendLedger CLI tool",
		Long:  `A command line interface for operating the LendLedger gateway.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the LendLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "Bearer token for authenticated requests")
	rootCmd.PersistentFlags().StringVar(&devPrincipal, "as", "", "Identity sent as X-Principal when no token is set")
	rootCmd.PersistentFlags().StringVar(&devRole, "as-role", "operator", "Role sent as X-Role alongside --as")

	rootCmd.AddCommand(accountCmd())
	rootCmd.AddCommand(loanCmd())

	// Ledger commands
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Cross-check the loan book against the ledger vault",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	}

	ledgerCmd.AddCommand(consistencyCmd)
	rootCmd.AddCommand(ledgerCmd)

	// Batch commands
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Scheduled batch operations",
	}

	batchCmd.AddCommand(defaultCheckCmd())
	batchCmd.AddCommand(liquidateCmd())
	rootCmd.AddCommand(batchCmd)

	// Token commands
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Access token operations",
	}

	tokenCmd.AddCommand(mintTokenCmd())
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// apiRequest sends one authenticated request. A bearer token wins over the
// dev-mode identity headers.
func apiRequest(method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case bearerToken != "":
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	case devPrincipal != "":
		req.Header.Set("X-Principal", devPrincipal)
		req.Header.Set("X-Role", devRole)
	}

	client := &http.Client{Timeout: timeout}
	return client.Do(req)
}

// callAPI sends body (when non-nil) as JSON and decodes a 2xx response into
// out (when non-nil). Any other outcome prints the response and exits.
func callAPI(method, path string, body, out any) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			fmt.Printf("Failed to encode request: %v\n", err)
			os.Exit(1)
		}
	}

	resp, err := apiRequest(method, path, payload)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(raw))
		os.Exit(1)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fmt.Printf("Failed to parse response: %v\n", err)
			os.Exit(1)
		}
	}
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account balance operations",
	}

	cmd.AddCommand(balancesCmd())
	cmd.AddCommand(depositCmd())
	cmd.AddCommand(withdrawCmd())
	cmd.AddCommand(bankTransferCmd())

	return cmd
}

func balancesCmd() *cobra.Command {
	var principal string

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show a principal's fiat and collateral balances",
		Run: func(cmd *cobra.Command, args []string) {
			var resp dto.BalancesResponse
			callAPI(http.MethodGet, "/api/v1/accounts/"+principal, nil, &resp)

			fmt.Printf("Principal:  %s\n", resp.Principal)
			fmt.Printf("Fiat:       %s\n", resp.Fiat)
			fmt.Printf("Collateral: %s\n", resp.Collateral)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Account principal")
	_ = cmd.MarkFlagRequired("principal")

	return cmd
}

func depositCmd() *cobra.Command {
	var principal, book, amount string

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Credit fiat or collateral to an account",
		Run: func(cmd *cobra.Command, args []string) {
			moveAccountFunds(principal, book, "deposits", amount)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Account principal")
	cmd.Flags().StringVar(&book, "book", "fiat", "Balance to credit: fiat or collateral")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to credit")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func withdrawCmd() *cobra.Command {
	var principal, book, amount string

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Debit fiat or collateral from an account",
		Run: func(cmd *cobra.Command, args []string) {
			moveAccountFunds(principal, book, "withdrawals", amount)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Account principal")
	cmd.Flags().StringVar(&book, "book", "fiat", "Balance to debit: fiat or collateral")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to debit")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// moveAccountFunds posts one deposit or withdrawal and prints the resulting
// balances.
func moveAccountFunds(principal, book, action, amount string) {
	if book != "fiat" && book != "collateral" {
		fmt.Printf("Invalid book %q, want fiat or collateral\n", book)
		os.Exit(1)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		fmt.Printf("Invalid amount %q: %v\n", amount, err)
		os.Exit(1)
	}

	var resp dto.BalancesResponse
	path := fmt.Sprintf("/api/v1/accounts/%s/%s/%s", principal, book, action)
	callAPI(http.MethodPost, path, dto.AmountRequest{Amount: value}, &resp)

	fmt.Printf("Fiat:       %s\n", resp.Fiat)
	fmt.Printf("Collateral: %s\n", resp.Collateral)
}

func bankTransferCmd() *cobra.Command {
	var principal, bankAccount, amount string

	cmd := &cobra.Command{
		Use:   "bank-transfer",
		Short: "Settle fiat to an off-ledger bank account",
		Run: func(cmd *cobra.Command, args []string) {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				fmt.Printf("Invalid amount %q: %v\n", amount, err)
				os.Exit(1)
			}

			var resp dto.BalancesResponse
			callAPI(http.MethodPost, "/api/v1/accounts/"+principal+"/bank-transfers",
				dto.BankTransferRequest{BankAccount: bankAccount, Amount: value}, &resp)

			fmt.Printf("Transferred %s to %s\n", value, bankAccount)
			fmt.Printf("Fiat remaining: %s\n", resp.Fiat)
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Account principal")
	cmd.Flags().StringVar(&bankAccount, "bank-account", "", "Destination bank account reference")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to settle")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("bank-account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func loanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan lifecycle operations",
	}

	cmd.AddCommand(loanCreateCmd())
	cmd.AddCommand(loanGetCmd())
	cmd.AddCommand(loanListCmd())
	cmd.AddCommand(loanRequestCmd())
	cmd.AddCommand(loanCancelCmd())
	cmd.AddCommand(loanDisburseCmd())
	cmd.AddCommand(loanRepayCmd())

	return cmd
}

func loanCreateCmd() *cobra.Command {
	var (
		loanAmount       string
		collateralAmount string
		repaymentAmount  string
		repayments       uint32
		termMonths       uint32
		scheduleDays     uint32
		aprBps           uint64
		initialLTV       uint64
		marginLTV        uint64
		liquidationLTV   uint64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a loan offer as the calling lender",
		Run: func(cmd *cobra.Command, args []string) {
			request := dto.InitiateLoanRequest{
				LoanAmount:       mustDecimalFlag("loan-amount", loanAmount),
				CollateralAmount: mustDecimalFlag("collateral-amount", collateralAmount),
				RepaymentAmount:  mustDecimalFlag("repayment-amount", repaymentAmount),
				RepaymentCount:   repayments,
				TermMonths:       termMonths,
				ScheduleDays:     scheduleDays,
				APRBps:           aprBps,
				InitialLTV:       initialLTV,
				MarginLTV:        marginLTV,
				LiquidationLTV:   liquidationLTV,
			}

			var resp dto.LoanResponse
			callAPI(http.MethodPost, "/api/v1/loans", request, &resp)

			fmt.Printf("Created loan %d (%s)\n", resp.ID, resp.Status)
		},
	}

	cmd.Flags().StringVar(&loanAmount, "loan-amount", "", "Fiat amount to lend")
	cmd.Flags().StringVar(&collateralAmount, "collateral-amount", "", "Collateral the borrower must post")
	cmd.Flags().StringVar(&repaymentAmount, "repayment-amount", "", "Fixed amount per repayment cycle")
	cmd.Flags().Uint32Var(&repayments, "repayments", 1, "Number of repayment cycles")
	cmd.Flags().Uint32Var(&termMonths, "term-months", 12, "Loan term in months")
	cmd.Flags().Uint32Var(&scheduleDays, "schedule-days", 30, "Days between repayments")
	cmd.Flags().Uint64Var(&aprBps, "apr-bps", 0, "Annual rate in basis points")
	cmd.Flags().Uint64Var(&initialLTV, "initial-ltv", 6000, "Initial LTV in basis points")
	cmd.Flags().Uint64Var(&marginLTV, "margin-ltv", 7500, "Margin call LTV in basis points")
	cmd.Flags().Uint64Var(&liquidationLTV, "liquidation-ltv", 9000, "Liquidation LTV in basis points")
	_ = cmd.MarkFlagRequired("loan-amount")
	_ = cmd.MarkFlagRequired("collateral-amount")
	_ = cmd.MarkFlagRequired("repayment-amount")

	return cmd
}

func loanGetCmd() *cobra.Command {
	var id uint64

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one loan",
		Run: func(cmd *cobra.Command, args []string) {
			var resp dto.LoanResponse
			callAPI(http.MethodGet, loanPath(id, ""), nil, &resp)
			printJSON(resp)
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "Loan ID")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func loanListCmd() *cobra.Command {
	var side string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the caller's loans on one side of the book",
		Run: func(cmd *cobra.Command, args []string) {
			if side != "lending" && side != "borrowing" {
				fmt.Printf("Invalid side %q, want lending or borrowing\n", side)
				os.Exit(1)
			}

			var resp dto.LoanListResponse
			callAPI(http.MethodGet, "/api/v1/loans/"+side, nil, &resp)

			fmt.Printf("%d loan(s)\n", resp.Count)
			for _, id := range resp.LoanIDs {
				fmt.Printf("  loan %d\n", id)
			}
		},
	}

	cmd.Flags().StringVar(&side, "side", "lending", "Book side: lending or borrowing")

	return cmd
}

func loanRequestCmd() *cobra.Command {
	var id uint64

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Claim a loan offer as the calling borrower",
		Run: func(cmd *cobra.Command, args []string) {
			var resp dto.LoanResponse
			callAPI(http.MethodPost, loanPath(id, "request"), nil, &resp)
			fmt.Printf("Loan %d is now %s\n", resp.ID, resp.Status)
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "Loan ID")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func loanCancelCmd() *cobra.Command {
	var id uint64

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Withdraw an undisbursed loan offer",
		Run: func(cmd *cobra.Command, args []string) {
			var resp dto.LoanResponse
			callAPI(http.MethodPost, loanPath(id, "cancel"), nil, &resp)
			fmt.Printf("Loan %d is now %s\n", resp.ID, resp.Status)
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "Loan ID")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func loanDisburseCmd() *cobra.Command {
	var (
		id      uint64
		nextDue int64
	)

	cmd := &cobra.Command{
		Use:   "disburse",
		Short: "Move funds and collateral and start the repayment schedule",
		Run: func(cmd *cobra.Command, args []string) {
			var resp dto.LoanResponse
			callAPI(http.MethodPost, loanPath(id, "disburse"), dto.DisburseLoanRequest{NextDue: nextDue}, &resp)
			fmt.Printf("Loan %d is now %s, next repayment due %d\n", resp.ID, resp.Status, resp.NextRepaymentDue)
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "Loan ID")
	cmd.Flags().Int64Var(&nextDue, "next-due", 0, "First repayment deadline as a unix timestamp")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("next-due")

	return cmd
}

func loanRepayCmd() *cobra.Command {
	var (
		id      uint64
		amount  string
		nextDue int64
	)

	cmd := &cobra.Command{
		Use:   "repay",
		Short: "Pay one repayment cycle as the calling borrower",
		Run: func(cmd *cobra.Command, args []string) {
			value := mustDecimalFlag("amount", amount)

			var resp dto.LoanResponse
			callAPI(http.MethodPost, loanPath(id, "repayments"),
				dto.RepaymentRequest{Amount: value, NextDue: nextDue}, &resp)

			fmt.Printf("Loan %d is now %s, %d repayment(s) remaining\n",
				resp.ID, resp.Status, resp.RemainingRepayments)
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "Loan ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Repayment amount, must match the scheduled amount")
	cmd.Flags().Int64Var(&nextDue, "next-due", 0, "Deadline for the following cycle, unix timestamp")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// loanPath builds /api/v1/loans/{id}[/action].
func loanPath(id uint64, action string) string {
	path := "/api/v1/loans/" + strconv.FormatUint(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

// mustDecimalFlag parses a decimal flag value or exits.
func mustDecimalFlag(name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		fmt.Printf("Invalid --%s %q: %v\n", name, value, err)
		os.Exit(1)
	}
	return d
}

func checkConsistency() {
	resp, err := apiRequest(http.MethodGet, "/api/v1/ledger/consistency", nil)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var report map[string]any
	if err := json.Unmarshal(body, &report); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\n", resp.StatusCode)
		printJSON(report["issues"])
		os.Exit(1)
	}

	fmt.Printf("Consistency check PASSED\n")
	if consistent, ok := report["consistent"].(bool); ok {
		fmt.Printf("Consistent: %v\n", consistent)
	}
}

func defaultCheckCmd() *cobra.Command {
	var deadline int64

	cmd := &cobra.Command{
		Use:   "default-check",
		Short: "Default every repaying loan whose due date passed the deadline",
		Run: func(cmd *cobra.Command, args []string) {
			payload, err := json.Marshal(dto.DefaultCheckRequest{Deadline: deadline})
			if err != nil {
				fmt.Printf("Failed to encode request: %v\n", err)
				os.Exit(1)
			}

			resp, err := apiRequest(http.MethodPost, "/api/v1/batch/default-checks", payload)
			if err != nil {
				fmt.Printf("Error making request: %v\n", err)
				os.Exit(1)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				fmt.Printf("Default check failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
				os.Exit(1)
			}

			var result dto.DefaultCheckResponse
			if err := json.Unmarshal(body, &result); err != nil {
				fmt.Printf("Failed to parse response: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("Defaulted %d loan(s)\n", result.Count)
			for _, id := range result.Defaulted {
				fmt.Printf("  loan %d\n", id)
			}
		},
	}

	cmd.Flags().Int64Var(&deadline, "deadline", 0, "Repayment deadline as a unix timestamp")
	_ = cmd.MarkFlagRequired("deadline")

	return cmd
}

func liquidateCmd() *cobra.Command {
	var specs []string

	cmd := &cobra.Command{
		Use:   "liquidate",
		Short: "Liquidate defaulted loans at the given collateral valuations",
		Run: func(cmd *cobra.Command, args []string) {
			var request dto.LiquidationRequest
			for _, spec := range specs {
				item, err := parseLoanSpec(spec)
				if err != nil {
					fmt.Println(err)
					os.Exit(1)
				}
				request.Loans = append(request.Loans, item)
			}

			payload, err := json.Marshal(request)
			if err != nil {
				fmt.Printf("Failed to encode request: %v\n", err)
				os.Exit(1)
			}

			resp, err := apiRequest(http.MethodPost, "/api/v1/batch/liquidations", payload)
			if err != nil {
				fmt.Printf("Error making request: %v\n", err)
				os.Exit(1)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				fmt.Printf("Liquidation failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
				os.Exit(1)
			}

			var outcomes []dto.LiquidationOutcomeResponse
			if err := json.Unmarshal(body, &outcomes); err != nil {
				fmt.Printf("Failed to parse response: %v\n", err)
				os.Exit(1)
			}

			for _, o := range outcomes {
				fmt.Printf("loan %d: %s (gross %s, residual %s)\n", o.LoanID, o.Status, o.GrossPaid, o.ResidualPaid)
			}
		},
	}

	cmd.Flags().StringArrayVar(&specs, "loan", nil, "Loan to liquidate as id:valuation:payable (repeatable)")
	_ = cmd.MarkFlagRequired("loan")

	return cmd
}

// parseLoanSpec parses one id:valuation:payable liquidation entry.
func parseLoanSpec(spec string) (dto.LiquidationItem, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return dto.LiquidationItem{}, fmt.Errorf("invalid loan spec %q, want id:valuation:payable", spec)
	}

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return dto.LiquidationItem{}, fmt.Errorf("invalid loan id in %q: %w", spec, err)
	}

	valuation, err := decimal.NewFromString(parts[1])
	if err != nil {
		return dto.LiquidationItem{}, fmt.Errorf("invalid valuation in %q: %w", spec, err)
	}

	payable, err := decimal.NewFromString(parts[2])
	if err != nil {
		return dto.LiquidationItem{}, fmt.Errorf("invalid payable in %q: %w", spec, err)
	}

	return dto.LiquidationItem{LoanID: id, Valuation: valuation, Payable: payable}, nil
}

func mintTokenCmd() *cobra.Command {
	var (
		secret    string
		principal string
		role      string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed access token with the shared gateway secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := domain.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("invalid role %q, want user, operator or admin", role)
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(domain.Principal(principal), r)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Shared JWT signing secret")
	cmd.Flags().StringVar(&principal, "principal", "", "Principal the token authenticates")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "Role claim: user, operator or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("principal")

	return cmd
}

// printJSON pretty-prints v to stdout.
func printJSON(v any) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}
