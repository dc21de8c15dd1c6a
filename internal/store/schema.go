package store

// schema is schema version 1. Money columns are TEXT holding canonical
// two-decimal strings; business dates are TEXT in YYYY-MM-DD form.
const schema = `
-- Chart of accounts
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('asset', 'liability', 'equity', 'revenue', 'expense')),
    parent_id INTEGER REFERENCES accounts(id),
    active INTEGER NOT NULL DEFAULT 1,
    deleted INTEGER NOT NULL DEFAULT 0,
    deleted_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Vendors
CREATE TABLE IF NOT EXISTS vendors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    contact TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Journals and their lines
CREATE TABLE IF NOT EXISTS journals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_date TEXT NOT NULL,
    type TEXT NOT NULL,
    memo TEXT NOT NULL DEFAULT '',
    posted INTEGER NOT NULL DEFAULT 1,
    source_type TEXT NOT NULL DEFAULT '',
    source_id INTEGER,
    reverses_id INTEGER REFERENCES journals(id),
    created_by TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS journal_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    journal_id INTEGER NOT NULL REFERENCES journals(id) ON DELETE CASCADE,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    debit TEXT NOT NULL DEFAULT '0.00',
    credit TEXT NOT NULL DEFAULT '0.00',
    description TEXT NOT NULL DEFAULT ''
);

-- Accounts payable
CREATE TABLE IF NOT EXISTS bills (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    vendor_id INTEGER NOT NULL REFERENCES vendors(id),
    reference TEXT NOT NULL DEFAULT '',
    bill_date TEXT NOT NULL,
    due_date TEXT NOT NULL DEFAULT '',
    total_amount TEXT NOT NULL DEFAULT '0.00',
    paid_amount TEXT NOT NULL DEFAULT '0.00',
    status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'partially_paid', 'paid')),
    ap_account_id INTEGER NOT NULL REFERENCES accounts(id),
    journal_id INTEGER REFERENCES journals(id),
    memo TEXT NOT NULL DEFAULT '',
    deleted INTEGER NOT NULL DEFAULT 0,
    deleted_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bill_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_id INTEGER NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    description TEXT NOT NULL DEFAULT '',
    quantity TEXT NOT NULL DEFAULT '1',
    unit_price TEXT NOT NULL DEFAULT '0.00',
    line_total TEXT NOT NULL DEFAULT '0.00'
);

CREATE TABLE IF NOT EXISTS bill_payments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_id INTEGER NOT NULL REFERENCES bills(id),
    payment_date TEXT NOT NULL,
    amount TEXT NOT NULL,
    source_account_id INTEGER NOT NULL REFERENCES accounts(id),
    journal_id INTEGER REFERENCES journals(id),
    memo TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bill_refunds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_id INTEGER NOT NULL REFERENCES bills(id),
    refund_date TEXT NOT NULL,
    amount TEXT NOT NULL,
    target_account_id INTEGER NOT NULL REFERENCES accounts(id),
    journal_id INTEGER REFERENCES journals(id),
    reason TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Imported bank statement lines
CREATE TABLE IF NOT EXISTS bank_transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    txn_date TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL,
    direction TEXT NOT NULL CHECK (direction IN ('credit', 'debit')),
    reference TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Reconciliation sessions and their cleared item sets
CREATE TABLE IF NOT EXISTS reconciliation_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    period_start TEXT NOT NULL,
    period_end TEXT NOT NULL,
    starting_balance TEXT NOT NULL DEFAULT '0.00',
    statement_balance TEXT NOT NULL DEFAULT '0.00',
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'draft_partial', 'completed', 'reopened')),
    completed_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reconciliation_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES reconciliation_sessions(id) ON DELETE CASCADE,
    item_type TEXT NOT NULL CHECK (item_type IN ('bank', 'ledger')),
    item_id INTEGER NOT NULL,
    match_id TEXT,
    cleared_at TEXT NOT NULL,
    UNIQUE (session_id, item_type, item_id)
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_id);
CREATE INDEX IF NOT EXISTS idx_journals_source ON journals(source_type, source_id);
CREATE INDEX IF NOT EXISTS idx_journal_lines_journal ON journal_lines(journal_id);
CREATE INDEX IF NOT EXISTS idx_journal_lines_account ON journal_lines(account_id);
CREATE INDEX IF NOT EXISTS idx_bills_vendor ON bills(vendor_id);
CREATE INDEX IF NOT EXISTS idx_bills_status ON bills(status);
CREATE INDEX IF NOT EXISTS idx_bill_lines_bill ON bill_lines(bill_id);
CREATE INDEX IF NOT EXISTS idx_bill_payments_bill ON bill_payments(bill_id);
CREATE INDEX IF NOT EXISTS idx_bill_refunds_bill ON bill_refunds(bill_id);
CREATE INDEX IF NOT EXISTS idx_bank_txns_account_date ON bank_transactions(account_id, txn_date);
CREATE UNIQUE INDEX IF NOT EXISTS ux_bank_txns_reference ON bank_transactions(account_id, reference) WHERE reference <> '';
CREATE INDEX IF NOT EXISTS idx_recon_sessions_account ON reconciliation_sessions(account_id);
CREATE INDEX IF NOT EXISTS idx_recon_items_session ON reconciliation_items(session_id);
`
