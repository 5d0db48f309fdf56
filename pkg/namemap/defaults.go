package namemap

// defaultTable lists distributions whose import name differs from the
// published name. Several Google distributions share the "google" namespace.
var defaultTable = map[string][]string{
	"scylla-driver":              {"cassandra"},
	"mysql-connector-python":     {"mysql"},
	"snowflake-connector-python": {"snowflake"},
	"snowflake-sqlalchemy":       {"snowflake"},
	"auto-sklearn":               {"autosklearn"},
	"google-cloud-aiplatform":    {"google"},
	"google-cloud-bigquery":      {"google"},
	"google-cloud-spanner":       {"google"},
	"google-auth-httplib2":       {"google"},
	"google-generativeai":        {"google"},
	"google-analytics-admin":     {"google"},
	"protobuf":                   {"google"},
	"google-api-python-client":   {"googleapiclient"},
	"binance-connector":          {"binance"},
	"pysqlite3":                  {"pysqlite3"},
	"sqlalchemy-spanner":         {"sqlalchemy"},
	"atlassian-python-api":       {"atlassian"},
	"databricks-sql-connector":   {"databricks"},
	"elasticsearch-dbapi":        {"es"},
	"pygithub":                   {"github"},
	"python-gitlab":              {"gitlab"},
	"impyla":                     {"impala"},
	"IfxPy":                      {"IfxPyDbi"},
	"salesforce-merlion":         {"merlion"},
	"newsapi-python":             {"newsapi"},
	"pinecone-client":            {"pinecone"},
	"plaid-python":               {"plaid"},
	"faiss-cpu":                  {"faiss"},
	"writerai":                   {"writer"},
	"rocketchat_API":             {"rocketchat_API"},
	"ShopifyAPI":                 {"shopify"},
	"solace-pubsubplus":          {"solace"},
	"taospy":                     {"taosrest"},
	"weaviate-client":            {"weaviate"},
	"pymupdf":                    {"fitz"},
	"ibm-db":                     {"ibm_db_dbi"},
	"python-dateutil":            {"dateutil"},
	"grpcio":                     {"grpc"},
	"sqlalchemy-redshift":        {"redshift_sqlalchemy"},
	"sqlalchemy-vertica-python":  {"sqla_vertica_python"},
	"grpcio-tools":               {"grpc"},
	"psycopg2-binary":            {"psycopg2"},
	"psycopg-binary":             {"psycopg"},
	"pymongo":                    {"pymongo", "bson"},
	"python-multipart":           {"multipart"},
	"pydateinfer":                {"dateinfer"},
	"scikit-learn":               {"sklearn"},
	"influxdb3-python":           {"influxdb_client_3"},
	"hubspot-api-client":         {"hubspot"},
	"pytest-lazy-fixture":        {"pytest_lazyfixture"},
	"eventbrite-python":          {"eventbrite"},
	"python-magic":               {"magic"},
	"clickhouse-sqlalchemy":      {"clickhouse_sqlalchemy"},
	"pillow":                     {"PIL"},
	"auto-ts":                    {"auto_ts"},
}

// DefaultTable returns a copy of the built-in package-name table.
func DefaultTable() map[string][]string {
	out := make(map[string][]string, len(defaultTable))
	for pkg, modules := range defaultTable {
		out[pkg] = append([]string(nil), modules...)
	}

	return out
}

// Default returns a Map over the built-in table.
func Default() *Map {
	return New(defaultTable)
}
