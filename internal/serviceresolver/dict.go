package serviceresolver

// synonyms maps normalized user phrases to canonical CUR line_item_product_code
// values. Curated from the most common phrasings seen in the original corpus's
// service_resolver dictionary; extend as new phrasings are observed.
var synonyms = map[string]string{
	"ec2":                         "AmazonEC2",
	"elastic compute cloud":       "AmazonEC2",
	"compute":                     "AmazonEC2",
	"s3":                          "AmazonS3",
	"simple storage service":      "AmazonS3",
	"storage":                     "AmazonS3",
	"rds":                         "AmazonRDS",
	"relational database service": "AmazonRDS",
	"dynamodb":                    "AmazonDynamoDB",
	"dynamo":                      "AmazonDynamoDB",
	"lambda":                      "AWSLambda",
	"eks":                         "AmazonEKS",
	"elastic kubernetes service":  "AmazonEKS",
	"kubernetes":                  "AmazonEKS",
	"ecs":                         "AmazonECS",
	"elastic container service":   "AmazonECS",
	"vpc":                         "AmazonVPC",
	"cloudfront":                  "AmazonCloudFront",
	"cdn":                         "AmazonCloudFront",
	"elasticache":                 "AmazonElastiCache",
	"ebs":                         "AmazonEBS",
	"elastic block store":         "AmazonEBS",
	"efs":                         "AmazonEFS",
	"elastic file system":         "AmazonEFS",
	"redshift":                    "AmazonRedshift",
	"sagemaker":                   "AmazonSageMaker",
	"data transfer":               "AWSDataTransfer",
	"route53":                     "AmazonRoute53",
	"route 53":                    "AmazonRoute53",
	"dns":                         "AmazonRoute53",
	"sns":                         "AmazonSNS",
	"sqs":                         "AmazonSQS",
	"api gateway":                 "AmazonApiGateway",
	"cloudwatch":                  "AmazonCloudWatch",
	"elb":                         "AWSELB",
	"elastic load balancing":      "AWSELB",
	"load balancer":               "AWSELB",
}

// knownProductCodes is the distinct set of CUR product codes ServiceResolver
// fuzzy-matches against until Resolver.RefreshProductCodes replaces it.
// Nothing in this module calls RefreshProductCodes or queries
// line_item_product_code, so this seed set is the one in use; a stale cache
// is only logged as a warning.
var knownProductCodes = []string{
	"AmazonEC2", "AmazonS3", "AmazonRDS", "AmazonDynamoDB", "AWSLambda",
	"AmazonEKS", "AmazonECS", "AmazonVPC", "AmazonCloudFront",
	"AmazonElastiCache", "AmazonEBS", "AmazonEFS", "AmazonRedshift",
	"AmazonSageMaker", "AWSDataTransfer", "AmazonRoute53", "AmazonSNS",
	"AmazonSQS", "AmazonApiGateway", "AmazonCloudWatch", "AWSELB",
}

func normalize(phrase string) string {
	var b []rune
	lastWasSpace := false
	for _, r := range phrase {
		switch {
		case r >= 'A' && r <= 'Z':
			b = append(b, r+('a'-'A'))
			lastWasSpace = false
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b = append(b, r)
			lastWasSpace = false
		case r == ' ', r == '-', r == '_':
			if !lastWasSpace && len(b) > 0 {
				b = append(b, ' ')
				lastWasSpace = true
			}
		default:
			// punctuation dropped
		}
	}
	for len(b) > 0 && b[len(b)-1] == ' ' {
		b = b[:len(b)-1]
	}
	return string(b)
}
